// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

// Package buildmatrix computes the set of Windows Jenkins image variants to
// build and the Docker tags each variant receives. The matrix is the single
// source of truth for the build, test, and publish phases: the tag layout
// encoded here must stay bit-for-bit compatible with the tags already
// published to the registry.
package buildmatrix

import (
	"fmt"
	"sort"
	"strings"
)

// variantIDPrefix is the fixed prefix every build variant identifier carries
// in the build configuration, as in "jdk17".
const variantIDPrefix = "jdk"

// toolsVersionOverrides maps a Windows base image version to the version tag
// used by the helper tool images, where the two disagree. The only known
// mismatch is ltsc2019: the Windows Server Core base image is tagged
// "ltsc2019" but the matching tool images are tagged "1809".
var toolsVersionOverrides = map[string]string{
	"ltsc2019": "1809",
}

// ImageType identifies the Windows base image an image variant is built on,
// parsed from a "<flavor>-<version>" descriptor such as
// "windowsservercore-ltsc2019".
type ImageType struct {
	// Flavor is the base image flavor, such as "windowsservercore" or
	// "nanoserver".
	Flavor string
	// Version is the base image version tag, such as "ltsc2019" or "1809".
	Version string
}

// ParseImageType parses a "<flavor>-<version>" descriptor. The descriptor
// must split into exactly two non-empty dash-separated parts.
func ParseImageType(s string) (ImageType, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ImageType{}, &MalformedImageTypeError{ImageType: s}
	}
	return ImageType{Flavor: parts[0], Version: parts[1]}, nil
}

// String returns the original "<flavor>-<version>" descriptor. This is also
// the bare tag given to the default JDK's variant.
func (t ImageType) String() string {
	return t.Flavor + "-" + t.Version
}

// ToolsVersion returns the version tag to use for helper tool images. It is
// the base image version except where an override applies.
func (t ImageType) ToolsVersion() string {
	if v, ok := toolsVersionOverrides[t.Version]; ok {
		return v
	}
	return t.Version
}

// Variant is one JDK-major-specific flavor of the image to build.
type Variant struct {
	// ID is the variant identifier as declared in the build configuration,
	// such as "jdk17".
	ID string
	// JDKMajor is the JDK major version digits, such as "17".
	JDKMajor string
}

// ParseVariantID parses a build variant identifier of the form
// "jdk<major>". The major part must be non-empty decimal digits.
func ParseVariantID(id string) (Variant, error) {
	major, ok := strings.CutPrefix(id, variantIDPrefix)
	if !ok || major == "" || !isDigits(major) {
		return Variant{}, &MalformedVariantIDError{VariantID: id}
	}
	return Variant{ID: id, JDKMajor: major}, nil
}

// ImageID returns the identifier of this variant's image for the given image
// type: "<jdkMajor>-hotspot-<flavor>-<version>".
func (v Variant) ImageID(t ImageType) string {
	return joinTag(v.JDKMajor, "hotspot", t.Flavor, t.Version)
}

// Entry is one image variant and the ordered tags it receives.
type Entry struct {
	ImageID string   `json:"imageId"`
	Tags    []string `json:"tags"`
}

// Matrix is the full set of image variants to build, in a deterministic
// order. It is computed once per run and never modified afterwards.
type Matrix []Entry

// Lookup returns the tags of the entry with the given image ID.
func (m Matrix) Lookup(imageID string) ([]string, bool) {
	for _, e := range m {
		if e.ImageID == imageID {
			return e.Tags, true
		}
	}
	return nil, false
}

// Resolve computes the build matrix for the given image type, Jenkins WAR
// version, and set of build variant identifiers.
//
// Variant identifiers are processed in lexicographic order so that repeated
// runs with identical inputs serialize identically: CI log diffing depends
// on stable output. Each entry is tagged with its image ID and the
// WAR-version-qualified image ID. The variant whose JDK major equals
// defaultJDK additionally receives the unqualified "<flavor>-<version>"
// convenience tags, in both bare and WAR-version-qualified form.
//
// Resolve is a pure function of its inputs. On a malformed variant
// identifier it returns an error and no partial matrix.
func Resolve(imageType ImageType, warVersion string, variantIDs []string, defaultJDK string) (Matrix, error) {
	if warVersion == "" {
		return nil, fmt.Errorf("no Jenkins WAR version specified")
	}

	sortedIDs := make([]string, len(variantIDs))
	copy(sortedIDs, variantIDs)
	sort.Strings(sortedIDs)

	m := make(Matrix, 0, len(sortedIDs))
	for _, id := range sortedIDs {
		v, err := ParseVariantID(id)
		if err != nil {
			return nil, err
		}

		imageID := v.ImageID(imageType)
		tags := []string{
			imageID,
			joinTag(warVersion, imageID),
		}
		if v.JDKMajor == defaultJDK {
			tags = append(tags,
				imageType.String(),
				joinTag(warVersion, imageType.String()),
			)
		}
		m = append(m, Entry{ImageID: imageID, Tags: tags})
	}
	return m, nil
}

// MalformedImageTypeError indicates an image type descriptor that does not
// have the "<flavor>-<version>" shape.
type MalformedImageTypeError struct {
	ImageType string
}

func (e *MalformedImageTypeError) Error() string {
	return fmt.Sprintf("malformed image type %q: expected \"<flavor>-<version>\"", e.ImageType)
}

// MalformedVariantIDError indicates a build variant identifier that does not
// have the "jdk<major>" shape.
type MalformedVariantIDError struct {
	VariantID string
}

func (e *MalformedVariantIDError) Error() string {
	return fmt.Sprintf("malformed build variant id %q: expected %q followed by JDK major version digits", e.VariantID, variantIDPrefix)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// joinTag joins the given strings with "-" to form a Docker tag (or partial
// tag). Empty strings are ignored and do not result in extra "-" characters.
func joinTag(s ...string) string {
	var b strings.Builder
	first := true
	for i := 0; i < len(s); i++ {
		if s[i] == "" {
			continue
		}
		if !first {
			b.WriteRune('-')
		}
		b.WriteString(s[i])
		first = false
	}
	return b.String()
}
