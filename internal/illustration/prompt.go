package illustration

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"fairytale/internal/character"
)

// MaxPromptLength 图片提示词的最大长度
const MaxPromptLength = 4000

var consistencyKeywords = []string{
	"same character as before",
	"consistent character design",
	"identical appearance",
	"recurring main character",
	"continuity of character features",
	"matching character look",
}

const styleBlock = `Art style: soft watercolor children's book illustration, 2D flat illustration, gentle pastel color palette, soft lighting, rounded friendly shapes, simple uncluttered background, warm and cozy mood. NOT 3D render, NOT photorealistic, no text or letters in the image.`

// ConsistencyKeyword 按场景编号轮换的一致性关键词
func ConsistencyKeyword(sceneNumber int) string {
	if sceneNumber < 0 {
		sceneNumber = -sceneNumber
	}
	return consistencyKeywords[sceneNumber%len(consistencyKeywords)]
}

// BuildPrompt 组装场景插画提示词：锚点提示、一致性关键词、角色特征、场景内容、画风
// 超出MaxPromptLength时只截断角色特征和场景内容，锚点、关键词和画风始终完整保留
func BuildPrompt(sceneNumber int, scenePrompt string, desc *character.Description, anchor *Anchor) string {
	var head strings.Builder
	if anchor != nil && anchor.Token != "" {
		fmt.Fprintf(&head, "Reference character ID: %s (first drawn in scene %d). Draw exactly the same child with the same face, hair and outfit.\n",
			anchor.Token, anchor.OriginatingScene)
	}
	fmt.Fprintf(&head, "Scene %d, %s.\n", sceneNumber, ConsistencyKeyword(sceneNumber))

	features := ""
	if desc != nil {
		features = strings.TrimSpace(desc.Features)
	}
	scene := strings.TrimSpace(scenePrompt)

	const (
		featuresLabel = "Main character: "
		sceneLabel    = "Scene: "
	)
	fixed := head.String() + sceneLabel + "\n" + styleBlock
	if features != "" {
		fixed += featuresLabel + "\n"
	}
	features, scene = fitBudget(MaxPromptLength-utf8.RuneCountInString(fixed), features, scene)

	var b strings.Builder
	b.WriteString(head.String())
	if features != "" {
		b.WriteString(featuresLabel + features + "\n")
	}
	b.WriteString(sceneLabel + scene + "\n")
	b.WriteString(styleBlock)
	return b.String()
}

// PortraitPrompt 组装角色立绘提示词，超长时只截断角色特征
func PortraitPrompt(name string, desc *character.Description, anchor *Anchor) string {
	var head strings.Builder
	if anchor != nil && anchor.Token != "" {
		fmt.Fprintf(&head, "Reference character ID: %s. Draw exactly the same child as in the story scenes.\n", anchor.Token)
	}
	fmt.Fprintf(&head, "Character portrait of %s, the main character of a children's picture book, full body, facing the viewer, smiling.\n",
		truncate(strings.TrimSpace(name), maxNameLength))

	const (
		featuresLabel = "Main character: "
		background    = "Plain light background.\n"
	)
	features := ""
	if desc != nil {
		features = strings.TrimSpace(desc.Features)
	}
	fixed := head.String() + background + styleBlock
	if features != "" {
		fixed += featuresLabel + "\n"
	}
	features = truncate(features, MaxPromptLength-utf8.RuneCountInString(fixed))

	var b strings.Builder
	b.WriteString(head.String())
	if features != "" {
		b.WriteString(featuresLabel + features + "\n")
	}
	b.WriteString(background)
	b.WriteString(styleBlock)
	return b.String()
}

const maxNameLength = 64

// fitBudget 把budget分给两段文本，较短的一段完整保留，剩余部分留给另一段
func fitBudget(budget int, a, b string) (string, string) {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb <= budget {
		return a, b
	}
	half := budget / 2
	switch {
	case la <= half:
		return a, truncate(b, budget-la)
	case lb <= half:
		return truncate(a, budget-lb), b
	default:
		return truncate(a, half), truncate(b, budget-half)
	}
}

// truncate 按rune截断，避免切断多字节字符
func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
