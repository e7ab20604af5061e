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

package naming

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	mrand "math/rand"

	"github.com/google/uuid"
)

//nolint:gochecknoglobals // word lists
var left = []string{
	"amber", "ancient", "ardent", "artful", "august", "autumnal", "brackish", "brave", "bright", "briny",
	"calm", "careful", "cheerful", "coastal", "coral", "cunning", "dauntless", "deep", "devoted", "diligent",
	"drifting", "emerald", "enduring", "faithful", "fearless", "fluted", "gallant", "gentle", "gleaming", "golden",
	"graceful", "grand", "hale", "hardy", "honest", "hopeful", "humble", "keen", "kind", "laughing",
	"loyal", "luminous", "merry", "mighty", "moonlit", "nacreous", "noble", "northern", "patient", "pearled",
	"proud", "quick", "quiet", "radiant", "resolute", "rugged", "sage", "salty", "scarlet", "seafaring",
	"silent", "silver", "simple", "spiral", "steadfast", "stern", "stout", "strong", "sturdy", "subtle",
	"swift", "tidal", "tireless", "true", "twilight", "valiant", "vigilant", "wandering", "wary", "weathered",
	"western", "white", "wild", "windborne", "wise", "wry",
}

//nolint:gochecknoglobals // word lists
var right = []string{
	"abalone", "anemone", "angelwing", "argonaut", "auger", "barnacle", "bonnet", "bubble", "cerith", "chambered",
	"chiton", "clam", "cockle", "conch", "cone", "coquina", "cowrie", "cuttle", "dogwinkle", "dosinia",
	"drupe", "harpa", "helmet", "janthina", "jingle", "junonia", "lambis", "limpet", "lucine", "marginella",
	"miter", "murex", "mussel", "nautilus", "nerite", "olive", "oyster", "pandora", "pecten", "periwinkle",
	"pheasant", "piddock", "quahog", "razor", "sanddollar", "scallop", "scaphopod", "seabiscuit", "slipper", "spindle",
	"starsnail", "sundial", "tellin", "topsnail", "triton", "trochus", "tulip", "turban", "turret", "tusk",
	"urchin", "venus", "volute", "wentletrap", "whelk", "winkle",
}

func RandomName() string {
	r := mrand.New(mrand.NewSource(randSeed()))
	l := left[r.Intn(len(left))]
	rn := right[r.Intn(len(right))]
	n := l + "_" + rn
	return n
}

func randSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return int64(binary.LittleEndian.Uint64(b[:]))
	}
	return mrand.Int63()
}

// RandomID is a short hex token for run directories and log paths.
func RandomID() string {
	length := 4
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewSessionID mints the opaque token callers use to address a pooled
// session. UUIDs keep ids unique across pool restarts.
func NewSessionID() string {
	return uuid.NewString()
}

// NewExecutionID identifies one in-flight command run.
func NewExecutionID() string {
	return uuid.NewString()
}
