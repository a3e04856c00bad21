// internal/game/resolver.go
package game

import (
	"strings"

	"github.com/Corphon/TaleWeaver/internal/models"
)

// ResolutionKind 表示一次命令解析的结果类别
type ResolutionKind string

const (
	// ResolutionNoInput 空输入（含语音识别不可用的情况），不做任何状态变更
	ResolutionNoInput ResolutionKind = "no_input"
	// ResolutionUnresolved 没有任何选项或词表命中
	ResolutionUnresolved ResolutionKind = "unresolved"
	// ResolutionResolved 唯一领先选项，且没有出边（死路）
	ResolutionResolved ResolutionKind = "resolved"
	// ResolutionTraverse 唯一领先选项，沿出边移动到目标事件
	ResolutionTraverse ResolutionKind = "traverse"
	// ResolutionBlocked 唯一领先选项，但仍有未满足的物品需求
	ResolutionBlocked ResolutionKind = "blocked_by_item"
	// ResolutionAmbiguous 多个选项并列领先，需要玩家澄清
	ResolutionAmbiguous ResolutionKind = "ambiguous"
	// ResolutionPickup 输入精确命中当前事件的可拾取物品
	ResolutionPickup ResolutionKind = "pickup"
	// ResolutionOpenInventory / ResolutionCloseInventory 背包开关
	ResolutionOpenInventory  ResolutionKind = "open_inventory"
	ResolutionCloseInventory ResolutionKind = "close_inventory"
	// ResolutionUseItem 背包模式下使用非钥匙物品
	ResolutionUseItem ResolutionKind = "use_item"
	// ResolutionApplyKey 钥匙命中唯一一个需要它的选项，自动抵消需求
	ResolutionApplyKey ResolutionKind = "apply_key"
	// ResolutionAwaitChoice 钥匙命中多个选项，进入待选择子状态
	ResolutionAwaitChoice ResolutionKind = "await_choice"
	// ResolutionNotUsable 钥匙在当前事件没有可抵消的需求
	ResolutionNotUsable ResolutionKind = "not_usable"
	// ResolutionInvalidSelection 待选择子状态下输入不匹配任何候选
	ResolutionInvalidSelection ResolutionKind = "invalid_selection"
)

// Resolution 表示解析结果及其载荷
type Resolution struct {
	Kind       ResolutionKind
	Option     *models.Option   // Resolved/Traverse/Blocked/ApplyKey 的命中选项
	Candidates []*models.Option // Ambiguous/AwaitChoice 的候选集，顺序稳定
	Item       models.Item      // Pickup/UseItem/ApplyKey/AwaitChoice 涉及的物品
	Score      float64          // 领先选项的得分
}

// Vocabulary 背包开关的命令词表。作为显式配置传入会话，
// 不使用全局可变状态。
type Vocabulary struct {
	OpenInventory  []string
	CloseInventory []string
}

// DefaultVocabulary 返回默认词表
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		OpenInventory:  []string{"inventory", "open inventory", "背包"},
		CloseInventory: []string{"close", "close inventory", "关闭背包"},
	}
}

// Resolver 将玩家的自由文本输入解析为动作
type Resolver struct {
	vocab Vocabulary
}

// NewResolver 创建命令解析器
func NewResolver(vocab Vocabulary) *Resolver {
	return &Resolver{vocab: vocab}
}

// Tokenize 按空白切分输入并统一小写
func Tokenize(input string) []string {
	return strings.Fields(strings.ToLower(input))
}

// ScoreOption 计算选项对输入的匹配得分：
// 命中的触发词数量除以选项自己的触发词总数
// （是对选项词表的覆盖率，不是对输入长度的精确率）。
// 没有触发词的选项不参与计分。
func ScoreOption(tokens []string, option *models.Option) float64 {
	if len(option.TriggerWords) == 0 {
		return 0
	}

	tokenSet := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		tokenSet[token] = true
	}

	matched := 0
	for _, word := range option.TriggerWords {
		if tokenSet[strings.ToLower(word)] {
			matched++
		}
	}
	return float64(matched) / float64(len(option.TriggerWords))
}

// ResolveCommand 解析常规模式下的输入。优先级：
// (a) 精确命中可拾取物品名 → 拾取；
// (b) 精确命中打开背包词 → 打开背包；
// (c) 对事件选项计分。
func (r *Resolver) ResolveCommand(event *models.Event, input string) Resolution {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Resolution{Kind: ResolutionNoInput}
	}

	if item, ok := event.FindPickup(normalized); ok {
		return Resolution{Kind: ResolutionPickup, Item: item}
	}

	if matchKeyword(r.vocab.OpenInventory, normalized) {
		return Resolution{Kind: ResolutionOpenInventory}
	}

	return r.scoreOptions(event, input)
}

// scoreOptions 对事件的全部选项计分并分类结果。
// 严格更高的得分清空并列集并以新领先者重开；
// 与当前最高分持平（且大于零）的选项按出现顺序累积。
func (r *Resolver) scoreOptions(event *models.Event, input string) Resolution {
	tokens := Tokenize(input)

	var best float64
	var leaders []*models.Option

	for _, option := range event.Options {
		score := ScoreOption(tokens, option)
		if score <= 0 {
			continue
		}
		switch {
		case score > best:
			best = score
			leaders = []*models.Option{option}
		case score == best:
			leaders = append(leaders, option)
		}
	}

	switch len(leaders) {
	case 0:
		return Resolution{Kind: ResolutionUnresolved}
	case 1:
		winner := leaders[0]
		if winner.Blocked() {
			return Resolution{Kind: ResolutionBlocked, Option: winner, Score: best}
		}
		if winner.LinkedEventID != nil {
			return Resolution{Kind: ResolutionTraverse, Option: winner, Score: best}
		}
		return Resolution{Kind: ResolutionResolved, Option: winner, Score: best}
	default:
		return Resolution{Kind: ResolutionAmbiguous, Candidates: leaders, Score: best}
	}
}

// ResolveInventoryCommand 解析背包打开状态下的输入：
// 关闭词优先，其余输入按名称匹配背包物品作"使用"动作。
// 使用的钥匙再按名称等价匹配当前事件中需要它的选项。
func (r *Resolver) ResolveInventoryCommand(player *models.Player, event *models.Event, input string) Resolution {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Resolution{Kind: ResolutionNoInput}
	}

	if matchKeyword(r.vocab.CloseInventory, normalized) {
		return Resolution{Kind: ResolutionCloseInventory}
	}

	item, ok := player.FindItem(normalized)
	if !ok {
		return Resolution{Kind: ResolutionUnresolved}
	}

	if item.Kind != models.ItemKindKey {
		return Resolution{Kind: ResolutionUseItem, Item: item}
	}

	candidates := optionsRequiringKey(event, item)
	switch len(candidates) {
	case 0:
		return Resolution{Kind: ResolutionNotUsable, Item: item}
	case 1:
		return Resolution{Kind: ResolutionApplyKey, Item: item, Option: candidates[0]}
	default:
		return Resolution{Kind: ResolutionAwaitChoice, Item: item, Candidates: candidates}
	}
}

// ResolveChoice 解析待选择子状态下的输入：
// 必须与某个候选选项的展示名完全一致（不区分大小写），
// 否则保持待选择状态。
func (r *Resolver) ResolveChoice(item models.Item, candidates []*models.Option, input string) Resolution {
	normalized := strings.TrimSpace(input)
	for _, candidate := range candidates {
		if strings.EqualFold(candidate.DisplayName, normalized) {
			return Resolution{Kind: ResolutionApplyKey, Item: item, Option: candidate}
		}
	}
	return Resolution{Kind: ResolutionInvalidSelection, Item: item, Candidates: candidates}
}

// optionsRequiringKey 收集事件中需要该钥匙的选项（按展示顺序）
func optionsRequiringKey(event *models.Event, key models.Item) []*models.Option {
	var candidates []*models.Option
	for _, option := range event.Options {
		if option.RequiresKey(key.Name) {
			candidates = append(candidates, option)
		}
	}
	return candidates
}

func matchKeyword(words []string, normalized string) bool {
	for _, word := range words {
		if strings.ToLower(word) == normalized {
			return true
		}
	}
	return false
}
