// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package composefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/jenkins-infra/winimage/buildmatrix"
	"github.com/jenkins-infra/winimage/goldentest"
)

var testImageType = buildmatrix.ImageType{Flavor: "windowsservercore", Version: "ltsc2019"}

func TestRead(t *testing.T) {
	f, err := Read(filepath.Join("testdata", "build-windows.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(f.VariantIDs(), []string{"jdk11", "jdk17"}); diff != nil {
		t.Error(diff)
	}
	svc := f.Services["jdk17"]
	if svc.Image != "jenkins4eval/jenkins:17-hotspot-windowsservercore-ltsc2019" {
		t.Errorf("unexpected jdk17 image: %v", svc.Image)
	}
	if got := svc.Build.Args["JAVA_MAJOR_VERSION"]; got != "17" {
		t.Errorf("unexpected JAVA_MAJOR_VERSION: %v", got)
	}
}

func TestReadCRLFAndBOM(t *testing.T) {
	content, err := os.ReadFile(filepath.Join("testdata", "build-windows.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	mangled := "\ufeff" + strings.ReplaceAll(string(content), "\n", "\r\n")
	path := filepath.Join(t.TempDir(), "build-windows.yaml")
	if err := os.WriteFile(path, []byte(mangled), 0o666); err != nil {
		t.Fatal(err)
	}

	f, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(f.VariantIDs(), []string{"jdk11", "jdk17"}); diff != nil {
		t.Error(diff)
	}
}

func TestReadNoServices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("services: {}\n"), 0o666); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("Read() accepted a configuration with no services")
	}
}

func TestMatrix(t *testing.T) {
	f, err := Read(filepath.Join("testdata", "build-windows.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.Matrix()
	if err != nil {
		t.Fatal(err)
	}

	want, err := buildmatrix.Resolve(testImageType, "2.431", []string{"jdk11", "jdk17"}, "17")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Error(diff)
	}
}

func TestReconcile(t *testing.T) {
	want, err := buildmatrix.Resolve(testImageType, "2.431", []string{"jdk11", "jdk17"}, "17")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("agreeing file", func(t *testing.T) {
		f, err := Read(filepath.Join("testdata", "build-windows.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if err := f.Reconcile(want); err != nil {
			t.Errorf("Reconcile() reported divergence for an agreeing file: %v", err)
		}
	})

	t.Run("divergent version pin", func(t *testing.T) {
		f, err := Read(filepath.Join("testdata", "build-windows-divergent.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		err = f.Reconcile(want)
		if err == nil {
			t.Fatal("Reconcile() silently accepted a divergent file")
		}
		// Both entries diverge and both must be reported.
		for _, imageID := range []string{"11-hotspot", "17-hotspot"} {
			if !strings.Contains(err.Error(), imageID) {
				t.Errorf("Reconcile() error does not mention %v:\n%v", imageID, err)
			}
		}
	})

	t.Run("missing variant", func(t *testing.T) {
		f, err := Read(filepath.Join("testdata", "build-windows.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		wider, err := buildmatrix.Resolve(testImageType, "2.431", []string{"jdk11", "jdk17", "jdk21"}, "17")
		if err != nil {
			t.Fatal(err)
		}
		err = f.Reconcile(wider)
		if err == nil || !strings.Contains(err.Error(), "21-hotspot") {
			t.Errorf("Reconcile() did not report the undeclared variant: %v", err)
		}
	})
}

var testGenerateParams = GenerateParams{
	Organisation: "jenkins4eval",
	Repository:   "jenkins",
	WarVersion:   "2.431",
	Checksum:     "9E47D60E8AD76E18FE663DEC74B7EB5E6FF60E1CCEB20176E25D7EBE25B29C05",
	ImageType:    testImageType,
	DefaultJDK:   "17",
	VariantIDs:   []string{"jdk11", "jdk17"},
}

func TestGenerateGolden(t *testing.T) {
	var sb strings.Builder
	if err := Generate(&sb, testGenerateParams); err != nil {
		t.Fatal(err)
	}
	goldentest.Check(t, "build-windows.yaml", sb.String())
}

func TestGenerateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build-windows.yaml")
	if err := WriteFile(path, testGenerateParams); err != nil {
		t.Fatal(err)
	}
	f, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}

	want, err := buildmatrix.Resolve(testImageType, "2.431", testGenerateParams.VariantIDs, "17")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Reconcile(want); err != nil {
		t.Errorf("generated file does not reconcile against the matrix it was generated from: %v", err)
	}
	if got := f.Services["jdk17"].Build.Args["TOOLS_WINDOWS_VERSION"]; got != "1809" {
		t.Errorf("TOOLS_WINDOWS_VERSION = %v, want 1809", got)
	}
}
