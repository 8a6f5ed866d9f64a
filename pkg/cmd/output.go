package cmd

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

// 输出格式.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// write 以 json 或 yaml 输出 v. yaml 由 json 转换而来，保持 json 标签与字段顺序.
func write(w io.Writer, format string, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	switch format {
	case formatJSON, "":
		_, err = fmt.Fprintln(w, string(b))
		return err
	case formatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(b, &node); err != nil {
			return err
		}

		plain(&node)

		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(&node); err != nil {
			return err
		}

		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q, want json or yaml", format)
	}
}

// plain 去掉 json 带来的 flow 与引号样式，输出块状 yaml.
func plain(n *yaml.Node) {
	n.Style = 0

	for _, c := range n.Content {
		plain(c)
	}
}
