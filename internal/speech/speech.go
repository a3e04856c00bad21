// internal/speech/speech.go
package speech

import "context"

// 核心只依赖这些窄接口，不依赖任何具体语音设备。
// 平台适配器（系统 TTS、识别引擎、文件选择对话框）在本模块之外实现。

// Speaker 文本转语音输出端
type Speaker interface {
	Speak(text string) error
	Stop() error
	Pause() error
	Resume() error

	// SetVolume 设置音量，范围 0..100
	SetVolume(volume int) error
	// SetRate 设置语速，范围 0.5..2.0
	SetRate(rate float64) error
	SetVoice(name string) error
	ListVoices() ([]string, error)
}

// Recognizer 语音识别输入端。识别结果以文本流的形式交付，
// 识别不可用时流中出现空字符串，由会话按空输入处理。
type Recognizer interface {
	// RequestPermission 申请录音权限
	RequestPermission(ctx context.Context) (bool, error)

	// Start 开始识别，返回识别文本流。关闭流表示识别结束。
	Start(ctx context.Context) (<-chan string, error)
	Stop() error

	// RestrictGrammar 限制识别词表（触发词、背包命令词等）
	RestrictGrammar(words []string) error
}

// FilePicker 故事导入导出的文件选择协作方。
// 故事内容以不透明字节块交换，选择器不关心内部格式。
type FilePicker interface {
	PickImport(ctx context.Context) ([]byte, error)
	PickExport(ctx context.Context, suggested string, blob []byte) error
}

// NullSpeaker 无输出的 Speaker 实现，用于无声运行和测试
type NullSpeaker struct{}

func (NullSpeaker) Speak(string) error            { return nil }
func (NullSpeaker) Stop() error                   { return nil }
func (NullSpeaker) Pause() error                  { return nil }
func (NullSpeaker) Resume() error                 { return nil }
func (NullSpeaker) SetVolume(int) error           { return nil }
func (NullSpeaker) SetRate(float64) error         { return nil }
func (NullSpeaker) SetVoice(string) error         { return nil }
func (NullSpeaker) ListVoices() ([]string, error) { return nil, nil }
