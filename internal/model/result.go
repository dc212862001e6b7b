package model

// ResultCode はアクション結果の分類。HTTPステータスへの変換に使い、JSONには出力しない。
type ResultCode int

const (
	ResultOK ResultCode = iota
	ResultInvalid
	ResultUnauthorized
	ResultFailed
)

// ActionResult は全ミューテーションアクションが返す統一結果フォーマット。
type ActionResult struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`

	Code ResultCode `json:"-"`
}

// Succeeded は成功結果を生成する。
func Succeeded(message string) ActionResult {
	return ActionResult{Success: true, Message: message, Code: ResultOK}
}

// Invalid はフィールド単位のエラーを含む失敗結果を生成する。
func Invalid(message string, errs map[string][]string) ActionResult {
	return ActionResult{Success: false, Message: message, Errors: errs, Code: ResultInvalid}
}

// Unauthorized は未認証・権限不足の失敗結果を生成する。
func Unauthorized(message, errText string) ActionResult {
	return ActionResult{Success: false, Message: message, Error: errText, Code: ResultUnauthorized}
}

// Failed は予期しない失敗の結果を生成する。詳細はログにのみ残す。
func Failed(message, errText string) ActionResult {
	return ActionResult{Success: false, Message: message, Error: errText, Code: ResultFailed}
}
