package service

import "testing"

func TestCleanReply(t *testing.T) {
	cases := map[string]string{
		"":                                  "",
		"   ":                               "",
		"\uFEFFHola":                        "Hola",
		"Assistant: Your balance is $10.":   "Your balance is $10.",
		"bot:hi":                            "hi",
		"```\nTransfer done.\n```":          "Transfer done.",
		"```text\nAssistant: ok\n```":       "ok",
		"Use `code` inline":                 "Use `code` inline",
		"Reply mentioning assistant: later": "Reply mentioning assistant: later",
	}
	for in, want := range cases {
		if got := cleanReply(in); got != want {
			t.Fatalf("cleanReply(%q) = %q, expected %q", in, got, want)
		}
	}
}
