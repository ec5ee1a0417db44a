// Package bank holds the controlled vocabulary of counterparty institutions:
// canonical names, wire codes, and the normalization applied to free-text
// ledger cells before a name can be used against the transfer form.
package bank

import (
	"regexp"
	"strings"
)

// codes maps canonical institution names to their wire codes.
var codes = map[string]string{
	"하나은행":     "081",
	"경남은행":     "039",
	"광주은행":     "034",
	"국민은행":     "004",
	"기업은행":     "003",
	"농협":       "011",
	"iM뱅크(대구)": "031",
	"도이치뱅크":    "055",
	"부산은행":     "032",
	"산업은행":     "002",
	"저축은행":     "050",
	"새마을금고":    "045",
	"수협은행":     "007",
	"신협":       "048",
	"신한은행":     "088",
	"우리은행":     "020",
	"우체국":      "071",
	"전북은행":     "037",
	"제주은행":     "035",
	"카카오뱅크":    "090",
	"케이뱅크":     "089",
	"한국씨티은행":   "027",
	"BOA":      "060",
	"HSBC":     "054",
	"JP모간":     "057",
	"SC제일은행":   "023",
	"하나증권":     "270",
	"교보증권":     "261",
	"대신증권":     "267",
	"미래에셋증권":   "238",
	"DB금융투자":   "279",
	"유안타증권":    "209",
	"메리츠증권":    "287",
	"부국증권":     "290",
	"삼성증권":     "240",
	"신영증권":     "291",
	"신한투자증권":   "278",
	"NH투자증권":   "247",
	"유진증권":     "280",
	"키움증권":     "264",
	"하이투자증권":   "262",
	"한국투자":     "243",
	"한화투자증권":   "269",
	"KB증권":     "218",
	"LS증권":     "265",
	"현대차증권":    "263",
	"케이프증권":    "292",
	"SK증권":     "266",
	"산림조합":     "064",
	"중국공상은행":   "062",
	"중국은행":     "063",
	"중국건설은행":   "067",
	"BNP파리바은행": "061",
	"한국포스증권":   "294",
	"다올투자증권":   "227",
	"BNK투자증권":  "224",
	"카카오페이증권":  "288",
	"IBK투자증권":  "225",
	"토스증권":     "271",
	"토스뱅크":     "092",
	"상상인증권":    "221",
}

// Code returns the wire code for a canonical institution name.
func Code(name string) (string, bool) {
	code, ok := codes[name]
	return code, ok
}

// aliasRule maps substring keywords to a canonical name. Rules are evaluated
// in order; the first rule with a matching keyword wins.
type aliasRule struct {
	keywords  []string
	canonical string
}

var aliasRules = []aliasRule{
	{[]string{"sc제일", "제일"}, "SC제일은행"},
	{[]string{"하나", "hana"}, "하나은행"},
	{[]string{"경남"}, "경남은행"},
	{[]string{"광주"}, "광주은행"},
	{[]string{"국민"}, "국민은행"},
	{[]string{"기업"}, "기업은행"},
	{[]string{"농협은행", "nh농협", "농협/"}, "농협"},
	{[]string{"대구", "im뱅크"}, "iM뱅크(대구)"},
	{[]string{"부산"}, "부산은행"},
	{[]string{"새마을"}, "새마을금고"},
	{[]string{"수협"}, "수협은행"},
	{[]string{"신한"}, "신한은행"},
	{[]string{"우리"}, "우리은행"},
	{[]string{"전북"}, "전북은행"},
	{[]string{"제주"}, "제주은행"},
	{[]string{"카카오", "카뱅"}, "카카오뱅크"},
	{[]string{"씨티"}, "한국씨티은행"},
	{[]string{"토스"}, "토스뱅크"},
	{[]string{"미래에셋대우", "미래에셋"}, "미래에셋증권"},
}

// Standardize maps a free-text institution name onto the controlled
// vocabulary. Unrecognized names are returned unchanged so that the form
// lookup can fail loudly instead of guessing.
func Standardize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, rule := range aliasRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.canonical
			}
		}
	}
	return raw
}

var accountInfoRe = regexp.MustCompile(`(\D+)\s*([\d\s\-]+)`)

// ParseAccountInfo splits a free-text ledger cell like "하나 110-123-456"
// into a standardized institution name and a digits-only account number.
// Cells that do not carry both parts yield empty strings.
func ParseAccountInfo(cell string) (bankName, accountNumber string) {
	m := accountInfoRe.FindStringSubmatch(cell)
	if m == nil {
		return "", ""
	}
	bankName = Standardize(strings.TrimSpace(m[1]))
	accountNumber = DigitsOnly(m[2])
	return bankName, accountNumber
}

// DigitsOnly strips everything but ASCII digits. Shared by the form filler
// (amount entry) and reconciliation matching.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
