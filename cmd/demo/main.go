// cmd/demo/main.go
//
// 终端试玩：内置一个小故事，从标准输入读取玩家命令。
// 输入 "quit" 退出，"save" 手动存档。
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Corphon/TaleWeaver/internal/game"
	"github.com/Corphon/TaleWeaver/internal/models"
	"github.com/Corphon/TaleWeaver/internal/services"
)

func main() {
	story := buildDemoStory()

	library, err := services.NewLibraryService("data/demo-library")
	if err != nil {
		log.Fatalf("初始化故事库失败: %v", err)
	}

	ctx := context.Background()
	if err := library.SaveStory(ctx, story); err != nil {
		log.Fatalf("保存示例故事失败: %v", err)
	}

	session, err := game.NewSession(story, game.DefaultVocabulary())
	if err != nil {
		log.Fatalf("创建会话失败: %v", err)
	}

	fmt.Printf("=== %s ===\n", story.Title)
	fmt.Println(session.CurrentEvent().Description)
	fmt.Println(`(输入命令推进剧情，"背包" 打开背包，"save" 存档，"quit" 退出)`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "quit":
			return
		case "save":
			if err := library.SaveGame(ctx, session.Story, session.Snapshot()); err != nil {
				fmt.Printf("存档失败: %v\n", err)
			} else {
				fmt.Println("已存档")
			}
			continue
		}

		result, err := session.HandleInput(input)
		if err != nil {
			fmt.Printf("错误: %v\n", err)
			continue
		}
		if result.Message != "" {
			fmt.Println(result.Message)
		}
	}
}

// buildDemoStory 构造示例故事：带拾取、钥匙门和分支的三个事件
func buildDemoStory() *models.StoryGraph {
	story := models.NewStoryGraph("demo", "废弃灯塔", "一个关于灯塔的小故事", "TaleWeaver")

	entrance := &models.Event{
		ID:          1,
		Name:        "灯塔入口",
		Description: "你站在废弃灯塔的入口。地上有一把铜钥匙，面前是一扇锈蚀的铁门。",
		IsFirst:     true,
		ItemsToPickUp: []models.Item{
			models.NewKeyItem("铜钥匙"),
		},
	}

	stairs := &models.Event{
		ID:          2,
		Name:        "旋转楼梯",
		Description: "铁门后是一段旋转楼梯，台阶上放着一瓶药水。",
		ItemsToPickUp: []models.Item{
			mustItem(models.ItemKindConsumable, "药水", models.ItemPayload{HealAmount: 20}),
		},
	}

	top := &models.Event{
		ID:          3,
		Name:        "灯室",
		Description: "你到达灯室。透过破碎的玻璃，海面在月光下泛着银光。故事结束。",
	}

	door := &models.Option{
		ID:            1,
		DisplayName:   "铁门",
		BodyText:      "铁门锁着。",
		RequiredItems: []models.Item{models.NewKeyItem("铜钥匙")},
	}
	door.AddTriggerWord("打开")
	door.AddTriggerWord("铁门")
	linkTo(door, stairs.ID)
	entrance.Options = append(entrance.Options, door)

	climb := &models.Option{
		ID:          2,
		DisplayName: "上楼",
		BodyText:    "你沿着楼梯向上爬。",
	}
	climb.AddTriggerWord("上楼")
	climb.AddTriggerWord("爬")
	linkTo(climb, top.ID)
	stairs.Options = append(stairs.Options, climb)

	for _, event := range []*models.Event{entrance, stairs, top} {
		if err := story.AddEvent(event); err != nil {
			log.Fatalf("构造示例故事失败: %v", err)
		}
	}
	return story
}

func linkTo(option *models.Option, eventID int) {
	option.LinkedEventID = &eventID
}

func mustItem(kind models.ItemKind, name string, payload models.ItemPayload) models.Item {
	item, err := models.NewItem(kind, name, payload)
	if err != nil {
		log.Fatalf("构造物品失败: %v", err)
	}
	return item
}
