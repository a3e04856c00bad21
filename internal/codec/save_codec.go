// internal/codec/save_codec.go
package codec

import (
	"encoding/json"
	"time"

	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/models"
	"gopkg.in/yaml.v3"
)

// 存档由两份并置文档组成：故事快照（见 graph_codec）和进度快照（本文件）。
// 当前写入格式为 JSON，时间戳内嵌在进度文档中；
// 旧格式为 YAML，没有内嵌时间戳，读取时以文件修改时间代替。

type progressDoc struct {
	StoryID        string    `json:"storyId" yaml:"storyId"`
	StoryTitle     string    `json:"storyTitle" yaml:"storyTitle"`
	CurrentEventID int       `json:"currentEventId" yaml:"currentEventId"`
	Health         int       `json:"health,omitempty" yaml:"health,omitempty"`
	Inventory      []itemDoc `json:"inventory" yaml:"inventory"`
	SavedAt        time.Time `json:"savedAt" yaml:"-"`
}

// EncodeProgress 将进度快照序列化为 JSON 字节
func EncodeProgress(save *models.Save) ([]byte, error) {
	if save == nil {
		return nil, apperrors.NewValidationError("存档不能为空", nil)
	}

	doc := progressDoc{
		StoryID:        save.StoryID,
		StoryTitle:     save.StoryTitle,
		CurrentEventID: save.CurrentEventID,
		Health:         save.Health,
		Inventory:      make([]itemDoc, 0, len(save.Inventory)),
		SavedAt:        save.SavedAt,
	}
	for _, item := range save.Inventory {
		doc.Inventory = append(doc.Inventory, encodeItem(item))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperrors.NewIOError("序列化存档数据失败", err)
	}
	return data, nil
}

// DecodeProgress 从 JSON 字节还原进度快照
func DecodeProgress(data []byte) (*models.Save, error) {
	var doc progressDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewDecodeError("解析存档数据失败", err)
	}
	return buildSave(&doc, doc.SavedAt)
}

// DecodeLegacyProgress 从 YAML 字节还原旧格式进度快照。
// 旧格式不内嵌时间戳，调用方传入持久化文件的修改时间。
func DecodeLegacyProgress(data []byte, modTime time.Time) (*models.Save, error) {
	var doc progressDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewDecodeError("解析存档数据失败", err)
	}
	return buildSave(&doc, modTime)
}

func buildSave(doc *progressDoc, savedAt time.Time) (*models.Save, error) {
	save := &models.Save{
		StoryID:        doc.StoryID,
		StoryTitle:     doc.StoryTitle,
		CurrentEventID: doc.CurrentEventID,
		Health:         doc.Health,
		Inventory:      make([]models.Item, 0, len(doc.Inventory)),
		SavedAt:        savedAt,
	}
	for _, item := range doc.Inventory {
		decoded, err := decodeItem(item)
		if err != nil {
			return nil, err
		}
		save.Inventory = append(save.Inventory, decoded)
	}
	return save, nil
}
