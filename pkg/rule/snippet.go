package rule

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// 片段相关的校验规则名.
const (
	TagSnippetStatus = "snippet_status" // published 或 draft
	TagSnippetFile   = "snippet_file"   // 合法的记录文件名，不含路径分隔符，以 .php 结尾
	TagYesNo         = "yesno"          // yes 或 no
)

func registerSnippetRules(v *validator.Validate) {
	_ = v.RegisterValidation(TagSnippetStatus, oneOfString("published", "draft"))
	_ = v.RegisterValidation(TagYesNo, oneOfString("yes", "no"))
	_ = v.RegisterValidation(TagSnippetFile, func(fl validator.FieldLevel) bool {
		name := fl.Field().String()

		return strings.HasSuffix(name, ".php") &&
			len(name) > len(".php") &&
			!strings.ContainsAny(name, `/\`) &&
			!strings.HasPrefix(name, ".")
	})
}

func oneOfString(allowed ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, a := range allowed {
			if s == a {
				return true
			}
		}

		return false
	}
}
