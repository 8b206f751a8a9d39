package domain

import "net/mail"

// Message 待投递的邮件内容
type Message struct {
	Subject string
	From    string
	ReplyTo string
	HTML    string
}

// Mailbox 按 RFC 5322 格式拼接 "Name <addr>"，名称为空时只返回地址
//
// 名称中的逗号、@ 等特殊字符会被加引号，非 ASCII 名称按 RFC 2047 编码，
// 保证结果能被 net/mail 重新解析。
func Mailbox(name, addr string) string {
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}

// Outcome 单个收件人的投递结果
type Outcome struct {
	Recipient string
	Accepted  bool
	Err       error
}

// Report 一次分发的汇总结果
type Report struct {
	Outcomes []Outcome
	Failed   int
	Total    int
}

// AllFailed 所有收件人均投递失败
func (r Report) AllFailed() bool {
	return r.Failed == r.Total
}
