package config

import (
	"fmt"
	"strings"
)

// maxSocketPathLen sun_path 为108字节，需要保留结尾的 NUL
const maxSocketPathLen = 107

// Validate 插件ID会直接拼进socket文件名，不能包含路径分隔符
func (p *PluginConfig) Validate() error {
	if err := valid.Struct(p); err != nil {
		return err
	}
	if strings.TrimSpace(p.ID) != p.ID {
		return fmt.Errorf("plugin.id %q must not have leading or trailing whitespace", p.ID)
	}
	if p.ID == "." || p.ID == ".." {
		return fmt.Errorf("plugin.id %q is not a valid file name", p.ID)
	}
	if strings.ContainsAny(p.ID, "/\\\x00") {
		return fmt.Errorf("plugin.id %q must not contain '/', '\\\\' or NUL", p.ID)
	}
	return nil
}

func validateSocketPath(field, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if len(path) > maxSocketPathLen {
		return fmt.Errorf("%s %q is %d bytes, unix sockets allow at most %d", field, path, len(path), maxSocketPathLen)
	}
	return nil
}
