// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

// Package composefile represents the compose-style 'build-windows.yaml' file
// that the container build tool consumes. Each service in the file is one
// build variant: the service name is the variant identifier and the service
// declares the image reference plus the additional tags the built image
// receives.
//
// The file can be generated from the resolved build matrix (Generate), and an
// existing file can be checked against the matrix (Reconcile). The matrix is
// the canonical source of truth; a file that disagrees with it is reported as
// an error rather than silently accepted, because a divergence means the
// published tag set would depend on which of the two the build happened to
// read.
package composefile

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jenkins-infra/winimage/buildmatrix"
	"github.com/jenkins-infra/winimage/stringutil"
	"go.yaml.in/yaml/v4"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// File is the root of a 'build-windows.yaml' file.
type File struct {
	Services map[string]*Service `yaml:"services"`
}

// Service is one build variant's declaration.
type Service struct {
	// Image is the primary image reference, "<organisation>/<repository>:<imageId>".
	Image string `yaml:"image"`
	Build *Build `yaml:"build,omitempty"`
}

// Build holds the build instructions for a service.
type Build struct {
	Context    string            `yaml:"context,omitempty"`
	Dockerfile string            `yaml:"dockerfile,omitempty"`
	Args       map[string]string `yaml:"args,omitempty"`
	// Tags is the list of additional image references applied to the built
	// image, beyond the service's primary Image reference.
	Tags []string `yaml:"tags,omitempty"`
}

// Read reads a build configuration file. The file is routinely edited on
// Windows, so a UTF-8 BOM and CRLF line endings are tolerated.
func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content := transform.NewReader(f,
		transform.Chain(unicode.BOMOverride(transform.Nop), stringutil.CRLFToLF{}))
	var file File
	if err := yaml.NewDecoder(content).Decode(&file); err != nil {
		return nil, fmt.Errorf("unable to decode build configuration %v: %w", path, err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("build configuration %v declares no services", path)
	}
	return &file, nil
}

// VariantIDs returns the declared build variant identifiers in lexicographic
// order.
func (f *File) VariantIDs() []string {
	ids := make([]string, 0, len(f.Services))
	for id := range f.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Matrix derives a build matrix from the declared services rather than
// recomputing it: the entry's image ID is the tag of the service's primary
// image reference, and the tag set is that tag followed by the tags of the
// additional references, in declaration order.
func (f *File) Matrix() (buildmatrix.Matrix, error) {
	m := make(buildmatrix.Matrix, 0, len(f.Services))
	for _, id := range f.VariantIDs() {
		svc := f.Services[id]
		imageID, err := refTag(svc.Image)
		if err != nil {
			return nil, fmt.Errorf("service %v: %w", id, err)
		}
		tags := []string{imageID}
		if svc.Build != nil {
			for _, ref := range svc.Build.Tags {
				tag, err := refTag(ref)
				if err != nil {
					return nil, fmt.Errorf("service %v: %w", id, err)
				}
				if tag == imageID {
					// The primary reference is commonly repeated in the
					// build tags so the build tool applies it itself.
					continue
				}
				tags = append(tags, tag)
			}
		}
		m = append(m, buildmatrix.Entry{ImageID: imageID, Tags: tags})
	}
	return m, nil
}

// Reconcile checks that the matrix derived from this file agrees with the
// resolved matrix. Every divergence is reported; none are resolved silently.
func (f *File) Reconcile(want buildmatrix.Matrix) error {
	got, err := f.Matrix()
	if err != nil {
		return err
	}

	var errs []error
	for _, wantEntry := range want {
		gotTags, ok := got.Lookup(wantEntry.ImageID)
		if !ok {
			errs = append(errs, fmt.Errorf("image %v: resolved but not declared in the build configuration", wantEntry.ImageID))
			continue
		}
		if err := sameTags(wantEntry.Tags, gotTags); err != nil {
			errs = append(errs, fmt.Errorf("image %v: %w", wantEntry.ImageID, err))
		}
	}
	for _, gotEntry := range got {
		if _, ok := want.Lookup(gotEntry.ImageID); !ok {
			errs = append(errs, fmt.Errorf("image %v: declared in the build configuration but not resolved", gotEntry.ImageID))
		}
	}
	return errors.Join(errs...)
}

func sameTags(want, got []string) error {
	if len(want) != len(got) {
		return fmt.Errorf("resolved tags %v, declared tags %v", want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("resolved tags %v, declared tags %v", want, got)
		}
	}
	return nil
}

// refTag returns the tag part of an image reference like
// "<organisation>/<repository>:<tag>".
func refTag(ref string) (string, error) {
	_, tag, found := stringutil.CutLast(ref, ":")
	if !found || tag == "" {
		return "", fmt.Errorf("image reference %q has no tag", ref)
	}
	return tag, nil
}

// WriteFile renders the canonical build configuration for the given
// parameters to path.
func WriteFile(path string, p GenerateParams) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to open build configuration %v for writing: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return Generate(f, p)
}
