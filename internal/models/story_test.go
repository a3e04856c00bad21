// internal/models/story_test.go
package models

import (
	"testing"
)

func buildTestGraph(t *testing.T) *StoryGraph {
	t.Helper()

	graph := NewStoryGraph("test-story", "测试故事", "用于测试的故事", "tester")

	a := &Event{ID: 1, Name: "事件A", Description: "起点", IsFirst: true}
	b := &Event{ID: 2, Name: "事件B", Description: "分支"}

	if err := graph.AddEvent(a); err != nil {
		t.Fatalf("添加事件A失败: %v", err)
	}
	if err := graph.AddEvent(b); err != nil {
		t.Fatalf("添加事件B失败: %v", err)
	}
	return graph
}

func TestAddEvent_DuplicateID(t *testing.T) {
	graph := buildTestGraph(t)

	err := graph.AddEvent(&Event{ID: 1, Name: "重复"})
	if err == nil {
		t.Fatal("期望重复 id 返回错误，实际为 nil")
	}
}

func TestDeleteEvent_CascadesLinks(t *testing.T) {
	graph := buildTestGraph(t)

	// B 的选项指向 A
	target := 1
	option := &Option{ID: 1, DisplayName: "回到起点", LinkedEventID: &target}
	if err := graph.AddOption(2, option); err != nil {
		t.Fatalf("添加选项失败: %v", err)
	}

	if err := graph.DeleteEvent(1); err != nil {
		t.Fatalf("删除事件失败: %v", err)
	}

	if _, exists := graph.Events[1]; exists {
		t.Error("事件A应已从图中移除")
	}
	if option.LinkedEventID != nil {
		t.Errorf("指向被删除事件的选项链接应被置空，实际为 %d", *option.LinkedEventID)
	}
	if graph.FirstEvent() != nil {
		t.Error("删除起始事件后，起始事件应变为无")
	}
}

func TestDeleteEvent_NotFound(t *testing.T) {
	graph := buildTestGraph(t)

	if err := graph.DeleteEvent(99); err == nil {
		t.Fatal("期望删除不存在的事件返回错误，实际为 nil")
	}
}

func TestSetFirstEvent_Exclusive(t *testing.T) {
	graph := buildTestGraph(t)

	if err := graph.SetFirstEvent(2); err != nil {
		t.Fatalf("设置起始事件失败: %v", err)
	}

	if graph.Events[1].IsFirst {
		t.Error("原起始事件的标志应被清除")
	}
	if !graph.Events[2].IsFirst {
		t.Error("新起始事件的标志应被设置")
	}

	if err := graph.SetFirstEvent(99); err == nil {
		t.Error("期望设置不存在的事件返回错误，实际为 nil")
	}
}

func TestAddOption_ValidatesTarget(t *testing.T) {
	graph := buildTestGraph(t)

	missing := 99
	err := graph.AddOption(1, &Option{ID: 1, DisplayName: "坏链接", LinkedEventID: &missing})
	if err == nil {
		t.Fatal("期望引用不存在事件的选项被拒绝，实际为 nil")
	}
}

func TestAddOption_DuplicateID(t *testing.T) {
	graph := buildTestGraph(t)

	if err := graph.AddOption(1, &Option{ID: 1, DisplayName: "第一个"}); err != nil {
		t.Fatalf("添加选项失败: %v", err)
	}
	if err := graph.AddOption(1, &Option{ID: 1, DisplayName: "重复"}); err == nil {
		t.Fatal("期望重复选项 id 返回错误，实际为 nil")
	}
}

func TestDeleteOption(t *testing.T) {
	graph := buildTestGraph(t)

	target := 2
	option := &Option{ID: 1, DisplayName: "前进", LinkedEventID: &target}
	if err := graph.AddOption(1, option); err != nil {
		t.Fatalf("添加选项失败: %v", err)
	}

	if err := graph.DeleteOption(1, 1); err != nil {
		t.Fatalf("删除选项失败: %v", err)
	}
	if len(graph.Events[1].Options) != 0 {
		t.Error("选项应已被移除")
	}
	if option.LinkedEventID != nil {
		t.Error("被删除选项的出边应被清除")
	}

	if err := graph.DeleteOption(1, 99); err == nil {
		t.Error("期望删除不存在的选项返回错误，实际为 nil")
	}
}

func TestGenerateNewEventID(t *testing.T) {
	if id := GenerateNewEventID(nil); id != 1 {
		t.Errorf("空列表应返回 1，实际为 %d", id)
	}

	events := []*Event{{ID: 1}, {ID: 2}, {ID: 3}}
	if id := GenerateNewEventID(events); id != 4 {
		t.Errorf("期望返回 4，实际为 %d", id)
	}

	// id 不连续时取最大值加一
	sparse := []*Event{{ID: 7}, {ID: 2}}
	if id := GenerateNewEventID(sparse); id != 8 {
		t.Errorf("期望返回 8，实际为 %d", id)
	}
}

func TestValidate_DanglingLink(t *testing.T) {
	graph := buildTestGraph(t)

	target := 2
	if err := graph.AddOption(1, &Option{ID: 1, DisplayName: "前进", LinkedEventID: &target}); err != nil {
		t.Fatalf("添加选项失败: %v", err)
	}
	if err := graph.Validate(); err != nil {
		t.Fatalf("合法图不应校验失败: %v", err)
	}

	// 绕过 DeleteEvent 的级联，制造悬空引用
	delete(graph.Events, 2)
	if err := graph.Validate(); err == nil {
		t.Error("期望悬空引用校验失败，实际为 nil")
	}
}
