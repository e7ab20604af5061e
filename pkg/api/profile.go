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

package api

// apiVersion: shellpool/v1beta1
// kind: ProfileCatalog

type (
	Version string
	Kind    string
)

const (
	APIVersionV1Beta1  Version = "shellpool/v1beta1"
	KindProfileCatalog Kind    = "ProfileCatalog"
)

// Platform names the three catalog buckets. Profiles from other platforms
// are never offered for launch.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformOSX     Platform = "osx"
)

// ProfileCatalogDoc models one YAML document containing a ProfileCatalog.
type ProfileCatalogDoc struct {
	APIVersion Version         `json:"apiVersion" yaml:"apiVersion"`
	Kind       Kind            `json:"kind"       yaml:"kind"`
	Platforms  PlatformBuckets `json:"platforms"  yaml:"platforms"`
}

// PlatformBuckets holds the per-platform profile maps. Keys are profile
// names; lookup is exact match, no normalization.
type PlatformBuckets struct {
	Windows map[string]ProfileDetail `json:"windows,omitempty" yaml:"windows,omitempty"`
	Linux   map[string]ProfileDetail `json:"linux,omitempty"   yaml:"linux,omitempty"`
	OSX     map[string]ProfileDetail `json:"osx,omitempty"     yaml:"osx,omitempty"`
}

// Bucket returns the profile map for one platform. Unknown platforms map to
// an empty bucket rather than an error; the caller sees "no profiles".
func (b PlatformBuckets) Bucket(p Platform) map[string]ProfileDetail {
	switch p {
	case PlatformWindows:
		return b.Windows
	case PlatformLinux:
		return b.Linux
	case PlatformOSX:
		return b.OSX
	default:
		return nil
	}
}

// PlatformForGOOS maps a Go runtime GOOS value onto a catalog bucket.
func PlatformForGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformOSX
	default:
		return PlatformLinux
	}
}
