// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

package composefile

import (
	_ "embed"
	"fmt"
	"io"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/jenkins-infra/winimage/buildmatrix"
)

//go:embed build-windows.yaml.tmpl
var buildConfigTemplate string

// GenerateParams are the inputs needed to render the canonical build
// configuration.
type GenerateParams struct {
	Organisation string
	Repository   string
	WarVersion   string
	// Checksum is the uppercase SHA-256 hex digest of the Jenkins WAR.
	Checksum   string
	ImageType  buildmatrix.ImageType
	DefaultJDK string
	VariantIDs []string
}

// templateData is the view of GenerateParams the template renders.
type templateData struct {
	Flavor       string
	Version      string
	ToolsVersion string
	WarVersion   string
	Checksum     string
	Services     []templateService
}

type templateService struct {
	ID       string
	JDKMajor string
	ImageRef string
	TagRefs  []string
}

// Generate renders the build configuration for the given parameters. The
// services are derived from the resolved build matrix, so the rendered file
// always reconciles cleanly against it.
func Generate(w io.Writer, p GenerateParams) error {
	m, err := buildmatrix.Resolve(p.ImageType, p.WarVersion, p.VariantIDs, p.DefaultJDK)
	if err != nil {
		return err
	}

	data := templateData{
		Flavor:       p.ImageType.Flavor,
		Version:      p.ImageType.Version,
		ToolsVersion: p.ImageType.ToolsVersion(),
		WarVersion:   p.WarVersion,
		Checksum:     p.Checksum,
	}
	ids := make([]string, len(p.VariantIDs))
	copy(ids, p.VariantIDs)
	sort.Strings(ids)
	for _, id := range ids {
		// Resolve already validated every identifier.
		v, err := buildmatrix.ParseVariantID(id)
		if err != nil {
			return err
		}
		imageID := v.ImageID(p.ImageType)
		tags, ok := m.Lookup(imageID)
		if !ok {
			return fmt.Errorf("image %v missing from resolved matrix", imageID)
		}
		s := templateService{
			ID:       v.ID,
			JDKMajor: v.JDKMajor,
			ImageRef: ref(p.Organisation, p.Repository, imageID),
		}
		for _, tag := range tags {
			s.TagRefs = append(s.TagRefs, ref(p.Organisation, p.Repository, tag))
		}
		data.Services = append(data.Services, s)
	}

	tmpl, err := template.New("build-windows").Funcs(sprig.HermeticTxtFuncMap()).Parse(buildConfigTemplate)
	if err != nil {
		return fmt.Errorf("parsing build configuration template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering build configuration: %w", err)
	}
	return nil
}

func ref(organisation, repository, tag string) string {
	return organisation + "/" + repository + ":" + tag
}
