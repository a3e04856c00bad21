// internal/game/session.go
package game

import (
	"fmt"
	"strings"

	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/models"
)

// PendingChoice 表示"钥匙命中多个选项"时的待选择子状态。
// 在玩家做出有效选择之前不发生任何状态变更。
type PendingChoice struct {
	Item       models.Item
	Candidates []*models.Option
}

// TurnResult 表示一次输入处理的结果
type TurnResult struct {
	Outcome    ResolutionKind   `json:"outcome"`
	Message    string           `json:"message"`
	Option     *models.Option   `json:"option,omitempty"`
	Candidates []*models.Option `json:"candidates,omitempty"`
	Item       *models.Item     `json:"item,omitempty"`
	MovedTo    *int             `json:"moved_to,omitempty"`
}

// Session 驱动一次游玩会话的状态机。
// 复合状态 = 当前事件 + 背包开关标志 + 待选择子状态。
type Session struct {
	Story         *models.StoryGraph
	Player        *models.Player
	InventoryOpen bool
	Pending       *PendingChoice

	resolver   *Resolver
	takenItems map[string]bool // 已拾取物品名（小写），拾取是单向的
	onMutate   func()          // 每次状态变更后的回调（自动存档挂接点）
}

// NewSession 从故事图的起始事件创建新会话
func NewSession(story *models.StoryGraph, vocab Vocabulary) (*Session, error) {
	if story == nil {
		return nil, apperrors.NewValidationError("故事图不能为空", nil)
	}
	first := story.FirstEvent()
	if first == nil {
		return nil, apperrors.NewValidationError("故事没有指定起始事件", nil)
	}

	return &Session{
		Story:      story,
		Player:     models.NewPlayer(first.ID),
		resolver:   NewResolver(vocab),
		takenItems: make(map[string]bool),
	}, nil
}

// ResumeSession 从存档恢复会话
func ResumeSession(story *models.StoryGraph, save *models.Save, vocab Vocabulary) (*Session, error) {
	if story == nil {
		return nil, apperrors.NewValidationError("故事图不能为空", nil)
	}
	if save == nil {
		return nil, apperrors.NewValidationError("存档不能为空", nil)
	}
	if _, ok := story.Events[save.CurrentEventID]; !ok {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("存档指向不存在的事件: %d", save.CurrentEventID), nil)
	}

	return &Session{
		Story:      story,
		Player:     save.RestorePlayer(),
		resolver:   NewResolver(vocab),
		takenItems: make(map[string]bool),
	}, nil
}

// SetMutationHook 注册状态变更回调。每个使状态变化的转移
// 都是一次自动存档的候选时机，由外层协作者决定是否存档。
func (s *Session) SetMutationHook(hook func()) {
	s.onMutate = hook
}

// CurrentEvent 返回玩家当前所在的事件
func (s *Session) CurrentEvent() *models.Event {
	return s.Story.Events[s.Player.CurrentEventID]
}

// Snapshot 生成当前进度的存档快照
func (s *Session) Snapshot() *models.Save {
	return models.NewSave(s.Story, s.Player)
}

// HandleInput 处理一条玩家输入并推进状态机。
// 空输入（包括语音识别不可用时的空结果）是无操作，不是错误。
func (s *Session) HandleInput(input string) (*TurnResult, error) {
	event := s.CurrentEvent()
	if event == nil {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("当前事件不存在: %d", s.Player.CurrentEventID), nil)
	}

	if strings.TrimSpace(input) == "" {
		return &TurnResult{Outcome: ResolutionNoInput}, nil
	}

	// 待选择子状态优先于其他一切输入处理
	if s.Pending != nil {
		resolution := s.resolver.ResolveChoice(s.Pending.Item, s.Pending.Candidates, input)
		return s.applyResolution(event, resolution), nil
	}

	if s.InventoryOpen {
		resolution := s.resolver.ResolveInventoryCommand(s.Player, event, input)
		return s.applyResolution(event, resolution), nil
	}

	resolution := s.resolver.ResolveCommand(event, input)
	if resolution.Kind == ResolutionUnresolved {
		// 重复拾取已拿走的物品时报告"物品不存在"，而不是落入通用未命中
		normalized := strings.ToLower(strings.TrimSpace(input))
		if s.takenItems[normalized] {
			return &TurnResult{
				Outcome: ResolutionUnresolved,
				Message: fmt.Sprintf("物品不存在: %s", strings.TrimSpace(input)),
			}, nil
		}
	}
	return s.applyResolution(event, resolution), nil
}

// applyResolution 把解析结果落实为状态变更
func (s *Session) applyResolution(event *models.Event, resolution Resolution) *TurnResult {
	switch resolution.Kind {
	case ResolutionNoInput:
		return &TurnResult{Outcome: ResolutionNoInput}

	case ResolutionPickup:
		return s.applyPickup(event, resolution.Item)

	case ResolutionOpenInventory:
		s.InventoryOpen = true
		return &TurnResult{Outcome: ResolutionOpenInventory, Message: s.describeInventory()}

	case ResolutionCloseInventory:
		s.InventoryOpen = false
		return &TurnResult{Outcome: ResolutionCloseInventory, Message: "你合上了背包"}

	case ResolutionUseItem:
		return s.applyUseItem(resolution.Item)

	case ResolutionApplyKey:
		return s.applyKey(resolution.Item, resolution.Option)

	case ResolutionAwaitChoice:
		s.Pending = &PendingChoice{Item: resolution.Item, Candidates: resolution.Candidates}
		return &TurnResult{
			Outcome:    ResolutionAwaitChoice,
			Message:    fmt.Sprintf("%s 可以用在多个地方，请输入选项名称", resolution.Item.Name),
			Candidates: resolution.Candidates,
			Item:       &resolution.Item,
		}

	case ResolutionNotUsable:
		return &TurnResult{
			Outcome: ResolutionNotUsable,
			Message: fmt.Sprintf("%s 在这里用不上", resolution.Item.Name),
			Item:    &resolution.Item,
		}

	case ResolutionInvalidSelection:
		// 保持待选择状态不变
		return &TurnResult{
			Outcome:    ResolutionInvalidSelection,
			Message:    "无效的选择，请输入候选选项的名称",
			Candidates: resolution.Candidates,
		}

	case ResolutionTraverse:
		return s.applyTraverse(resolution.Option)

	case ResolutionResolved:
		return &TurnResult{
			Outcome: ResolutionResolved,
			Message: resolution.Option.BodyText,
			Option:  resolution.Option,
		}

	case ResolutionBlocked:
		return &TurnResult{
			Outcome: ResolutionBlocked,
			Message: fmt.Sprintf("你还缺少打开「%s」所需的物品", resolution.Option.DisplayName),
			Option:  resolution.Option,
		}

	case ResolutionAmbiguous:
		return &TurnResult{
			Outcome:    ResolutionAmbiguous,
			Message:    "你的意思不够明确，可能是: " + joinOptionNames(resolution.Candidates),
			Candidates: resolution.Candidates,
		}

	default:
		return &TurnResult{
			Outcome: ResolutionUnresolved,
			Message: "没有匹配的选项",
		}
	}
}

// applyPickup 把物品从事件的拾取列表移入背包（单向转移）
func (s *Session) applyPickup(event *models.Event, item models.Item) *TurnResult {
	taken, ok := event.TakePickup(item.Name)
	if !ok {
		return &TurnResult{
			Outcome: ResolutionUnresolved,
			Message: fmt.Sprintf("物品不存在: %s", item.Name),
		}
	}

	s.Player.AddItem(taken)
	s.takenItems[strings.ToLower(taken.Name)] = true
	s.mutated()
	return &TurnResult{
		Outcome: ResolutionPickup,
		Message: fmt.Sprintf("你拾取了 %s", taken.Name),
		Item:    &taken,
	}
}

// applyUseItem 使用非钥匙物品：消耗品用后移除，武器切换装备状态
func (s *Session) applyUseItem(item models.Item) *TurnResult {
	switch item.Kind {
	case models.ItemKindConsumable:
		removed, ok := s.Player.RemoveItem(item.Name)
		if !ok {
			return &TurnResult{
				Outcome: ResolutionUnresolved,
				Message: fmt.Sprintf("物品不存在: %s", item.Name),
			}
		}
		_, message := removed.Use(s.Player)
		s.mutated()
		return &TurnResult{Outcome: ResolutionUseItem, Message: message, Item: &removed}

	case models.ItemKindWeapon:
		for i := range s.Player.Inventory {
			if strings.EqualFold(s.Player.Inventory[i].Name, item.Name) {
				_, message := s.Player.Inventory[i].Use(s.Player)
				s.mutated()
				return &TurnResult{
					Outcome: ResolutionUseItem,
					Message: message,
					Item:    &s.Player.Inventory[i],
				}
			}
		}
		return &TurnResult{
			Outcome: ResolutionUnresolved,
			Message: fmt.Sprintf("物品不存在: %s", item.Name),
		}

	default:
		_, message := item.Use(s.Player)
		return &TurnResult{Outcome: ResolutionUseItem, Message: message, Item: &item}
	}
}

// applyKey 用钥匙抵消选项的物品需求：钥匙离开背包，需求被清除。
// 之后该选项的触发词解析不再报告物品阻塞。
func (s *Session) applyKey(key models.Item, option *models.Option) *TurnResult {
	removed, ok := s.Player.RemoveItem(key.Name)
	if !ok {
		return &TurnResult{
			Outcome: ResolutionUnresolved,
			Message: fmt.Sprintf("物品不存在: %s", key.Name),
		}
	}

	if !option.SurrenderKey(removed) {
		// 需求已不存在，物归原主
		s.Player.AddItem(removed)
		return &TurnResult{
			Outcome: ResolutionNotUsable,
			Message: fmt.Sprintf("%s 在这里用不上", removed.Name),
			Item:    &removed,
		}
	}

	s.Pending = nil
	s.mutated()
	return &TurnResult{
		Outcome: ResolutionApplyKey,
		Message: fmt.Sprintf("你用 %s 打开了「%s」", removed.Name, option.DisplayName),
		Option:  option,
		Item:    &removed,
	}
}

// applyTraverse 沿选项出边移动到目标事件
func (s *Session) applyTraverse(option *models.Option) *TurnResult {
	targetID := *option.LinkedEventID
	target, ok := s.Story.Events[targetID]
	if !ok {
		return &TurnResult{
			Outcome: ResolutionUnresolved,
			Message: fmt.Sprintf("选项指向不存在的事件: %d", targetID),
		}
	}

	s.Player.CurrentEventID = targetID
	s.mutated()
	return &TurnResult{
		Outcome: ResolutionTraverse,
		Message: target.Description,
		Option:  option,
		MovedTo: &targetID,
	}
}

// describeInventory 生成背包内容描述
func (s *Session) describeInventory() string {
	if len(s.Player.Inventory) == 0 {
		return "背包是空的"
	}
	names := make([]string, 0, len(s.Player.Inventory))
	for _, item := range s.Player.Inventory {
		names = append(names, item.Name)
	}
	return "背包里有: " + strings.Join(names, "、")
}

func (s *Session) mutated() {
	if s.onMutate != nil {
		s.onMutate()
	}
}

func joinOptionNames(options []*models.Option) string {
	names := make([]string, 0, len(options))
	for _, option := range options {
		names = append(names, option.DisplayName)
	}
	return strings.Join(names, " / ")
}
