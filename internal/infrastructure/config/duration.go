package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 可从 YAML 解析的时长类型
// 支持 "2s"、"1500ms" 形式的字符串，以及纳秒整数
type Duration time.Duration

// Std 转换为标准库 time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML 实现 yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}

	return fmt.Errorf("cannot parse %q as duration", value.Value)
}

// MarshalYAML 实现 yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
