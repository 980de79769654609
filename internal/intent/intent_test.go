package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []Intent
		primary Intent
	}{
		{"seat question", "請問王小明坐哪裡", []Intent{SeatLookup, WeddingLocation}, SeatLookup},
		{"table number", "我是第幾桌", []Intent{SeatLookup}, SeatLookup},
		{"location", "婚禮地點在哪", []Intent{WeddingLocation}, WeddingLocation},
		{"time", "婚禮幾點開始", []Intent{WeddingTime}, WeddingTime},
		{"location and time", "時間跟地址是什麼", []Intent{WeddingLocation, WeddingTime}, WeddingLocation},
		{"nothing matches", "恭喜恭喜", []Intent{Smalltalk}, Smalltalk},
		{"empty", "", []Intent{Smalltalk}, Smalltalk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := Classify(tt.text)
			assert.Len(t, set, len(tt.want))
			for _, i := range tt.want {
				assert.True(t, set.Has(i), "expected %s in %v", i, set)
			}
			assert.Equal(t, tt.primary, set.Primary())
		})
	}
}

func TestSetPrimaryEmpty(t *testing.T) {
	assert.Equal(t, Smalltalk, Set{}.Primary())
}

func TestExtractKeyword(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"polite seat question", "請問王小明坐哪裡", "王小明", true},
		{"possessive with seat", "王小明的位子", "王小明", true},
		{"find request", "幫我找陳大文的座位", "陳大文", true},
		{"punctuation stripped", "王小明在哪裡？！", "王小明", true},
		{"latin name kept", "請問 Amy Chen 坐哪", "Amy Chen", true},
		{"hyphen and period kept", "查 J.-P. Wu", "J.-P. Wu", true},
		{"only filler", "請問我的座位", "", false},
		{"single character left", "王的座位", "", false},
		{"too long", "請問一二三四五六七八九十一二三四五六七八九十一", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractKeyword(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidKeywordLength(t *testing.T) {
	assert.False(t, ValidKeywordLength("王"))
	assert.True(t, ValidKeywordLength("王明"))
	assert.True(t, ValidKeywordLength("一二三四五六七八九十一二三四五六七八九十"))
	assert.False(t, ValidKeywordLength("一二三四五六七八九十一二三四五六七八九十一"))
}
