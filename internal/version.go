// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package internal

import (
	"fmt"
	"strconv"
	"time"
)

var (
	commitVersion string = "v0.9.0"     // Should be updated during build
	commitDate    string = "1753795200" // commitDate in Epoch seconds (can be filled/updated in during build)
)

// GetVersion returns the version plus the commit date when one was
// inserted at build time.
func GetVersion() string {
	msg := commitVersion
	if commitDate != "" {
		seconds, err := strconv.Atoi(commitDate)
		if err == nil {
			t := time.Unix(int64(seconds), 0)
			msg += fmt.Sprintf(", date: %s", t.Format("2006-01-02"))
		}
	}
	return msg
}
