// Copyright 2026 Gavel Labs Software
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

package plugin

import (
	"fmt"

	"github.com/spf13/pflag"
)

// PopulateCmdlineOptions adds a command-line flag for every registered
// plugin option. Flags are named <type>-<plugin>-<option>, for example
// metadata-sqlite-data-dir, and write straight into the option's Dest
// so plugins pick up overrides without further plumbing.
func PopulateCmdlineOptions(flags *pflag.FlagSet) error {
	for i := range pluginEntries {
		entry := &pluginEntries[i]
		for _, opt := range entry.Options {
			flagName := fmt.Sprintf(
				"%s-%s-%s",
				PluginTypeName(entry.Type),
				entry.Name,
				opt.Name,
			)
			if flags.Lookup(flagName) != nil {
				continue
			}
			switch opt.Type {
			case PluginOptionTypeString:
				dest, ok := opt.Dest.(*string)
				if !ok || dest == nil {
					return fmt.Errorf(
						"invalid destination for option %s",
						flagName,
					)
				}
				defValue, _ := opt.DefaultValue.(string)
				flags.StringVar(dest, flagName, defValue, opt.Description)
			case PluginOptionTypeBool:
				dest, ok := opt.Dest.(*bool)
				if !ok || dest == nil {
					return fmt.Errorf(
						"invalid destination for option %s",
						flagName,
					)
				}
				defValue, _ := opt.DefaultValue.(bool)
				flags.BoolVar(dest, flagName, defValue, opt.Description)
			case PluginOptionTypeInt:
				dest, ok := opt.Dest.(*int)
				if !ok || dest == nil {
					return fmt.Errorf(
						"invalid destination for option %s",
						flagName,
					)
				}
				defValue, _ := opt.DefaultValue.(int)
				flags.IntVar(dest, flagName, defValue, opt.Description)
			case PluginOptionTypeUint:
				dest, ok := opt.Dest.(*uint64)
				if !ok || dest == nil {
					return fmt.Errorf(
						"invalid destination for option %s",
						flagName,
					)
				}
				defValue, _ := opt.DefaultValue.(uint64)
				flags.Uint64Var(dest, flagName, defValue, opt.Description)
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					flagName,
				)
			}
		}
	}
	return nil
}
