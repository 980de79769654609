package eventinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
couple: 王大明 & 林美玲
date: 2025年10月26日 星期六
time: 中午12:00入席
venue: 台北東方文華酒店 7F豪瑞奇廳
address: 台北市松山區敦化北路158號
transport: 捷運南京復興站步行五分鐘，飯店有停車位
`

func writeInfo(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	info, err := Load(writeInfo(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "台北東方文華酒店 7F豪瑞奇廳", info.Venue)
	assert.Empty(t, info.DressCode)

	empty, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Placeholder, empty.Context())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeInfo(t, "venue: [unterminated"))
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	info, err := Load(writeInfo(t, sample))
	require.NoError(t, err)

	ctx := info.Context()
	assert.Contains(t, ctx, "新人：王大明 & 林美玲")
	assert.Contains(t, ctx, "地址：台北市松山區敦化北路158號")
	assert.NotContains(t, ctx, "服裝建議")
}

func TestAnswer(t *testing.T) {
	info, err := Load(writeInfo(t, sample))
	require.NoError(t, err)

	tests := []struct {
		question string
		want     string
	}{
		{"婚禮幾點開始", "婚禮時間：2025年10月26日 星期六 中午12:00入席"},
		{"地址是什麼", "婚禮地點：台北東方文華酒店 7F豪瑞奇廳\n地址：台北市松山區敦化北路158號"},
		{"要怎麼去", "捷運南京復興站步行五分鐘，飯店有停車位"},
		{"要穿什麼", defaultReply},
		{"你好", defaultReply},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, info.Answer(tt.question))
		})
	}
}

func TestAnswer_CustomDefault(t *testing.T) {
	info := &Info{Default: "請直接問新人喔"}
	assert.Equal(t, "請直接問新人喔", info.Answer("幾點"))
}
