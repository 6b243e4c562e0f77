package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formrules/pkg/validation"
)

// loadCatalog reads message templates keyed by locale then message key:
//
//	sw:
//	  required: "{{ label }} inahitajika."
func loadCatalog(path string) (validation.Translator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	catalog := map[string]map[string]string{}
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode messages %s: %w", path, err)
	}
	return validation.TranslatorFunc(func(locale, key string, _ ...any) (string, error) {
		if tpl, ok := catalog[locale][key]; ok {
			return tpl, nil
		}
		return "", fmt.Errorf("no %q message for locale %q", key, locale)
	}), nil
}
