/*
 * Copyright 2023 Okapi Project Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hir

import (
    `github.com/BurntSushi/toml`
    `github.com/pkg/errors`
)

// Config tunes the optimization driver. The zero value runs every pass with
// no dumping and no verification.
type Config struct {
    DisabledPasses     []string `toml:"disabled_passes"`
    DumpDir            string   `toml:"dump_dir"`
    CheckAfterEachPass bool     `toml:"check_after_each_pass"`
}

// LoadConfig reads a TOML driver configuration, e.g.
//
//     disabled_passes       = ["Bounds Check Elimination"]
//     dump_dir              = "/tmp/hir"
//     check_after_each_pass = true
//
func LoadConfig(fn string) (Config, error) {
    var cfg Config
    if _, err := toml.DecodeFile(fn, &cfg); err != nil {
        return cfg, errors.Wrapf(err, "cannot load driver config %q", fn)
    }
    for _, name := range cfg.DisabledPasses {
        if !isKnownPass(name) {
            return cfg, errors.Errorf("unknown pass %q in driver config", name)
        }
    }
    return cfg, nil
}

func (self Config) passDisabled(name string) bool {
    for _, v := range self.DisabledPasses {
        if v == name {
            return true
        }
    }
    return false
}
