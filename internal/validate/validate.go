// Package validate はozzo-validationの検証結果をフィールド別エラーに変換する補助関数を提供する。
package validate

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Equals は値がwantと一致することを検証するルールを返す。
func Equals(want, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if s != want {
			return errors.New(message)
		}
		return nil
	})
}

// FieldErrors はvalidation.Errorsをフィールド名からメッセージ一覧へのmapに変換する。
// errがvalidation.Errorsでない場合はokがfalseになる。
func FieldErrors(err error) (map[string][]string, bool) {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	out := make(map[string][]string, len(verrs))
	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		out[field] = append(out[field], ferr.Error())
	}
	return out, true
}

// Fields はエラーのあるフィールド名を昇順で返す。ログ出力用。
func Fields(errs map[string][]string) []string {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
