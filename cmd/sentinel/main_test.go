package main

import (
	"testing"

	"github.com/HoneyTrapAI/sentinel/pkg/config"
)

func TestSettingsOverrideMerge(t *testing.T) {
	base := config.Settings{
		Enabled:  true,
		AutoMode: false,
		APIURL:   "http://localhost:3000",
		APIKey:   "default-key",
		Persona:  "default",
	}

	t.Run("nil override keeps defaults", func(t *testing.T) {
		var o *settingsOverride
		if got := o.merge(base); got != base {
			t.Errorf("merge(nil) = %+v", got)
		}
	})

	t.Run("partial override", func(t *testing.T) {
		auto := true
		url := "https://backend.example"
		o := &settingsOverride{AutoMode: &auto, APIURL: &url}

		got := o.merge(base)
		if !got.AutoMode || got.APIURL != url {
			t.Errorf("override fields not applied: %+v", got)
		}
		if !got.Enabled || got.APIKey != "default-key" || got.Persona != "default" {
			t.Errorf("untouched fields changed: %+v", got)
		}
	})

	t.Run("explicit false wins over default true", func(t *testing.T) {
		off := false
		o := &settingsOverride{Enabled: &off}
		if got := o.merge(base); got.Enabled {
			t.Error("explicit enabled=false was ignored")
		}
	})
}
