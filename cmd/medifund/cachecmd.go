// Copyright 2026 Blink Labs Software
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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local campaign cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached campaign records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := appFromCommand(cmd)
				if err != nil {
					return err
				}
				defer a.close()
				records, err := a.cache.Records(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(os.Stdout, records)
			},
		},
		&cobra.Command{
			Use:   "invalidate",
			Short: "Drop records that are confirmed on chain or expired",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := appFromCommand(cmd)
				if err != nil {
					return err
				}
				defer a.close()
				dropped, err := a.cache.Invalidate(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("dropped %d records\n", dropped)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Drop all cached records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := appFromCommand(cmd)
				if err != nil {
					return err
				}
				defer a.close()
				return a.cache.Store().Clear(cmd.Context())
			},
		},
	)
	return cmd
}
