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
	"os"
	"strconv"
	"strings"
)

// pluginTypeByName maps a config section name back to its plugin type
func pluginTypeByName(name string) (PluginType, error) {
	switch name {
	case "blob":
		return PluginTypeBlob, nil
	case "metadata":
		return PluginTypeMetadata, nil
	default:
		return 0, fmt.Errorf("unknown plugin type: %s", name)
	}
}

// ProcessConfig applies plugin option values from a parsed config file.
// The outer map is keyed by plugin type name, then plugin name, then
// option name, matching the blob/metadata sections of the YAML config.
func ProcessConfig(
	pluginConfig map[string]map[string]map[string]any,
) error {
	for typeName, plugins := range pluginConfig {
		pluginType, err := pluginTypeByName(typeName)
		if err != nil {
			return err
		}
		for pluginName, options := range plugins {
			for optName, value := range options {
				if err := SetPluginOption(
					pluginType,
					pluginName,
					optName,
					value,
				); err != nil {
					return fmt.Errorf(
						"setting %s plugin %s option %s: %w",
						typeName,
						pluginName,
						optName,
						err,
					)
				}
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin option values from the environment.
// Variables are named GAVEL_<TYPE>_<PLUGIN>_<OPTION> with dashes
// replaced by underscores, for example GAVEL_BLOB_BADGER_DATA_DIR or
// GAVEL_METADATA_SQLITE_MAX_CONNECTIONS.
func ProcessEnvVars() error {
	for i := range pluginEntries {
		entry := &pluginEntries[i]
		for _, opt := range entry.Options {
			envName := strings.ToUpper(
				strings.ReplaceAll(
					fmt.Sprintf(
						"gavel_%s_%s_%s",
						PluginTypeName(entry.Type),
						entry.Name,
						opt.Name,
					),
					"-",
					"_",
				),
			)
			raw, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			var value any
			switch opt.Type {
			case PluginOptionTypeString:
				value = raw
			case PluginOptionTypeBool:
				parsed, err := strconv.ParseBool(raw)
				if err != nil {
					return fmt.Errorf("invalid value for %s: %w", envName, err)
				}
				value = parsed
			case PluginOptionTypeInt:
				parsed, err := strconv.Atoi(raw)
				if err != nil {
					return fmt.Errorf("invalid value for %s: %w", envName, err)
				}
				value = parsed
			case PluginOptionTypeUint:
				parsed, err := strconv.ParseUint(raw, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid value for %s: %w", envName, err)
				}
				value = parsed
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					opt.Name,
				)
			}
			if err := SetPluginOption(
				entry.Type,
				entry.Name,
				opt.Name,
				value,
			); err != nil {
				return fmt.Errorf("applying %s: %w", envName, err)
			}
		}
	}
	return nil
}
