// Copyright 2025 The shellpool Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package catalog loads and queries ProfileCatalog YAMLs. A catalog file may
// hold several '---' documents; same-named profiles in later documents
// override earlier ones within their platform bucket.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shellpool/shellpool/internal/errdefs"
	"github.com/shellpool/shellpool/pkg/api"
	"gopkg.in/yaml.v3"
)

// Load reads a multi-document YAML file into one merged catalog. A missing
// file is not an error: the pool runs fine with an empty catalog and skips
// profile-name validation entirely.
func Load(path string) (*api.ProfileCatalogDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyDoc(), nil
		}
		return nil, fmt.Errorf("%w: %q: %w", errdefs.ErrOpenCatalogFile, path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes one or more ProfileCatalog documents from r and
// merges their platform buckets.
func LoadFromReader(r io.Reader) (*api.ProfileCatalogDoc, error) {
	dec := yaml.NewDecoder(r)

	merged := emptyDoc()
	for {
		var doc api.ProfileCatalogDoc
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %w", errdefs.ErrInvalidCatalog, err)
		}

		// Basic sanity checks; skip empty docs.
		if string(doc.APIVersion) == "" || string(doc.Kind) == "" {
			slog.Debug("skipping empty catalog document")
			continue
		}
		if doc.Kind != api.KindProfileCatalog {
			slog.Debug("skipping document of foreign kind", "kind", doc.Kind)
			continue
		}

		mergeBucket(merged.Platforms.Windows, doc.Platforms.Windows)
		mergeBucket(merged.Platforms.Linux, doc.Platforms.Linux)
		mergeBucket(merged.Platforms.OSX, doc.Platforms.OSX)
	}

	return merged, nil
}

func emptyDoc() *api.ProfileCatalogDoc {
	return &api.ProfileCatalogDoc{
		APIVersion: api.APIVersionV1Beta1,
		Kind:       api.KindProfileCatalog,
		Platforms: api.PlatformBuckets{
			Windows: map[string]api.ProfileDetail{},
			Linux:   map[string]api.ProfileDetail{},
			OSX:     map[string]api.ProfileDetail{},
		},
	}
}

func mergeBucket(dst, src map[string]api.ProfileDetail) {
	for name, detail := range src {
		dst[name] = detail
	}
}

// Names returns the sorted profile names of one bucket, for enumeration in
// lookup-failure messages.
func Names(bucket map[string]api.ProfileDetail) []string {
	names := make([]string, 0, len(bucket))
	for name := range bucket {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindProfile looks name up in bucket. The match is case-sensitive by
// contract; "wsl" does not find "WSL".
func FindProfile(bucket map[string]api.ProfileDetail, name string) (api.ProfileDetail, bool) {
	detail, ok := bucket[name]
	return detail, ok
}

// PrintProfilesTable renders a compact table of one platform bucket.
func PrintProfilesTable(w io.Writer, platform api.Platform, bucket map[string]api.ProfileDetail) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(bucket) == 0 {
		fmt.Fprintln(tw, "no profiles found")
		return tw.Flush()
	}

	fmt.Fprintln(tw, "NAME\tPLATFORM\tPATH\tARGS\tICON")
	for _, name := range Names(bucket) {
		detail := bucket[name]
		fmt.Fprintf(
			tw,
			"%s\t%s\t%s\t%s\t%s\n",
			name,
			platform,
			detail.Path,
			strings.Join(detail.Args, " "),
			detail.Icon,
		)
	}

	return tw.Flush()
}
