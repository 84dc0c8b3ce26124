package apperr

// userMessages maps each code to the fixed sentence shown to end users.
// These are the only error texts that leave the logs.
var userMessages = map[Code]string{
	CodeSystem:          "システムエラーが発生しました。しばらくしてから再度お試しください。",
	CodeData:            "データの形式に誤りがあります。入力内容をご確認ください。",
	CodeSheetAccess:     "スプレッドシートへのアクセスに失敗しました。しばらくしてから再度お試しください。",
	CodeSheetPermission: "スプレッドシートへのアクセス権限がありません。管理者にお問い合わせください。",
	CodeFolderNotFound:  "保存先フォルダが見つかりません。管理者にお問い合わせください。",

	CodeCustomerNotFound:   "指定された顧客が見つかりません。",
	CodeCustomerDuplicate:  "同名の顧客が既に登録されています。",
	CodeCustomerValidation: "顧客情報の入力内容に誤りがあります。",
	CodeCustomerConflict:   "この顧客には請求書が存在するため削除できません。",

	CodeInvoiceNotFound:   "指定された請求書が見つかりません。",
	CodeInvoiceDuplicate:  "同じ請求書番号が既に存在します。",
	CodeInvoiceValidation: "請求書の入力内容に誤りがあります。",
	CodeInvoiceStatus:     "請求書のステータスが不正なため、この操作は実行できません。",

	CodeRender: "PDFの生成に失敗しました。しばらくしてから再度お試しください。",
}

const fallbackMessage = "エラーが発生しました。しばらくしてから再度お試しください。"

// UserMessage returns the fixed, non-technical sentence for err's code.
// Unknown codes and untyped errors fall back to a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := userMessages[CodeOf(err)]; ok {
		return msg
	}
	return fallbackMessage
}
