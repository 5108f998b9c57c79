// Copyright (c) the Jenkins project contributors.
// Licensed under the MIT License.

// Package warsum resolves the SHA-256 checksum of a Jenkins WAR release from
// the Jenkins artifact repository. The checksum is baked into the image
// builds so the Dockerfiles can verify the WAR they download, and a run must
// not start building anything until the checksum is known to be resolvable.
package warsum

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the Jenkins release repository all WAR artifacts and
// their checksum files are published to.
const DefaultBaseURL = "https://repo.jenkins-ci.org/releases"

// sha256HexLength is the length of a SHA-256 digest in hex characters.
const sha256HexLength = 64

// URL returns the address of the checksum file for the given Jenkins WAR
// version.
func URL(baseURL, version string) string {
	return fmt.Sprintf(
		"%v/org/jenkins-ci/main/jenkins-war/%v/jenkins-war-%v.war.sha256",
		strings.TrimSuffix(baseURL, "/"), version, version)
}

// Fetch downloads the checksum file for the given Jenkins WAR version and
// returns the digest as uppercase hex. A version that doesn't correspond to
// a real release results in an error, making this the fail-fast validation
// point for the version input.
func Fetch(ctx context.Context, client *http.Client, baseURL, version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("no Jenkins WAR version specified")
	}

	url := URL(baseURL, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching Jenkins WAR checksum: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching Jenkins WAR checksum %v: %v", url, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading %v: %w", url, err)
	}

	// Some repository frontends serve "<digest>  <filename>" sha256sum
	// format rather than the digest alone.
	digest, _, _ := strings.Cut(strings.TrimSpace(string(body)), " ")
	if len(digest) != sha256HexLength || !isHex(digest) {
		return "", fmt.Errorf("checksum file %v does not contain a SHA-256 hex digest: %q", url, digest)
	}
	return strings.ToUpper(digest), nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
