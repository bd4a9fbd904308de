// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"github.com/z5labs/pageboy/config"
	"github.com/z5labs/pageboy/config/key"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags binds each flag to the config key it overrides.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for name, k := range keys {
		err := v.BindPFlag(k, fs.Lookup(name))
		if err != nil {
			return err
		}
	}
	return nil
}

// flagSource only applies flags which were explicitly set, so flag
// defaults never override values from other sources.
func flagSource(v *viper.Viper) config.Source {
	return config.SourceFunc(func(store config.Store) error {
		for _, k := range v.AllKeys() {
			if !v.IsSet(k) {
				continue
			}
			err := store.Set(key.Parse(k, "."), v.Get(k))
			if err != nil {
				return err
			}
		}
		return nil
	})
}
