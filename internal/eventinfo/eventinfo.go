// Package eventinfo holds the public facts about the wedding.
package eventinfo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placeholder is the context used when no wedding details are configured
const Placeholder = "目前尚未提供婚禮資訊。"

const defaultReply = "真是個好問題！但我目前還無法回答，您可以試著問我關於「時間」、「地點」或「交通」的問題。"

// Info is the event info file
type Info struct {
	Couple    string `yaml:"couple"`
	Date      string `yaml:"date"`
	Time      string `yaml:"time"`
	Venue     string `yaml:"venue"`
	Address   string `yaml:"address"`
	Transport string `yaml:"transport"`
	DressCode string `yaml:"dress_code"`
	Default   string `yaml:"default_reply"`
}

// Load reads a YAML info file. An empty path yields an empty Info.
func Load(path string) (*Info, error) {
	if path == "" {
		return &Info{}, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("event info file %s not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read event info: %w", err)
	}

	var info Info
	if err := yaml.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to parse event info: %w", err)
	}
	return &info, nil
}

// Context renders the configured fields for the text generator
func (i *Info) Context() string {
	fields := []struct{ label, value string }{
		{"新人", i.Couple},
		{"日期", i.Date},
		{"時間", i.Time},
		{"地點", i.Venue},
		{"地址", i.Address},
		{"交通方式", i.Transport},
		{"服裝建議", i.DressCode},
	}

	var lines []string
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			lines = append(lines, f.label+"："+v)
		}
	}
	if len(lines) == 0 {
		return Placeholder
	}
	return strings.Join(lines, "\n")
}

// Answer picks a canned answer by keyword. It is used when no text
// generator is configured.
func (i *Info) Answer(question string) string {
	switch {
	case containsAny(question, "時間", "時候", "幾點", "日期", "哪天"):
		if when := i.when(); when != "" {
			return "婚禮時間：" + when
		}
	case containsAny(question, "地點", "哪裡", "地址", "在哪"):
		if i.Venue != "" {
			if i.Address != "" {
				return fmt.Sprintf("婚禮地點：%s\n地址：%s", i.Venue, i.Address)
			}
			return "婚禮地點：" + i.Venue
		}
	case containsAny(question, "交通", "怎麼去", "停車"):
		if i.Transport != "" {
			return i.Transport
		}
	case containsAny(question, "穿", "服裝"):
		if i.DressCode != "" {
			return i.DressCode
		}
	}
	if i.Default != "" {
		return i.Default
	}
	return defaultReply
}

func (i *Info) when() string {
	return strings.TrimSpace(strings.Join([]string{i.Date, i.Time}, " "))
}

func containsAny(text string, substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
