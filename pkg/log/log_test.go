package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// 未调用 Init 时所有日志函数都必须可安全调用，
// 否则任何走到日志路径的单元测试都会崩溃。
func TestLogSafeBeforeInit(t *testing.T) {
	require.NotPanics(t, func() {
		Info("消息")
		Infof("格式化 %d", 1)
		Infow("结构化", "key", "value")
		Warnf("警告 %s", "内容")
		Error("错误", errors.New("boom"))
		Errorf("错误 %v", errors.New("boom"))
		Sync()
	})
}
