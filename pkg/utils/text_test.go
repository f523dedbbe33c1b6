package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("¿quién es Emma?", 6); got != "¿quién..." {
		t.Errorf("multibyte truncate = %q", got)
	}
}

func TestCharCount(t *testing.T) {
	if n := CharCount("año"); n != 3 {
		t.Errorf("CharCount(año) = %d, want 3", n)
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("who\n is\t Emma?  "); got != "who is Emma?" {
		t.Errorf("SingleLine = %q", got)
	}
}
