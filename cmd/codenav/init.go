// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/shaharia-lab/codenav/internal/config"
	"github.com/shaharia-lab/codenav/internal/errors"
	"github.com/shaharia-lab/codenav/internal/ui"
)

// runInit executes the 'init' CLI command, creating a .codenav.yml
// configuration file in the current directory.
func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing .codenav.yml")
	projectID := fs.String("project-id", "", "Project identifier (default: directory name)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codenav init [options]

Creates .codenav.yml in the current directory.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUsage)
	}

	cwd, err := os.Getwd()
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Cannot determine current directory", err.Error(), "", err), false)
	}

	path := config.Path(cwd)
	if _, err := os.Stat(path); err == nil && !*force {
		errors.FatalError(errors.NewUsageError(
			fmt.Sprintf("%s already exists", path),
			"init will not overwrite an existing configuration by default",
			"Re-run with --force to overwrite it",
		), false)
	}

	pid := *projectID
	if pid == "" {
		pid = filepath.Base(cwd)
	}

	cfg := config.Default(pid)
	if err := config.Save(cfg, path); err != nil {
		errors.FatalError(errors.NewFormatError(
			"Cannot write configuration", err.Error(), "Check directory permissions", err), false)
	}

	ui.Success(fmt.Sprintf("Created %s", path))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  codenav index       Parse the repository into a graph")
	fmt.Println("  codenav query --kind function")
}
