package model

// MaxScenes 一个故事最多包含的场景数
const MaxScenes = 6

// Gender 儿童性别
type Gender string

const (
	GenderBoy  Gender = "boy"
	GenderGirl Gender = "girl"
)

// ParseGender 解析性别，无法识别时默认为boy
func ParseGender(s string) Gender {
	if Gender(s) == GenderGirl {
		return GenderGirl
	}
	return GenderBoy
}

// ChildProfile 儿童信息，调用方创建后在整个流程中只读
type ChildProfile struct {
	Name   string `json:"name" binding:"required"` // 名字
	Age    int    `json:"age"`                     // 年龄
	Gender string `json:"gender,omitempty"`        // boy | girl
	Photo  string `json:"photo,omitempty"`         // base64 data URL 或图片地址
}

// StoryRequest 完整故事生成请求
type StoryRequest struct {
	ChildProfile ChildProfile `json:"child_profile" binding:"required"`
	Theme        string       `json:"theme" binding:"required"`
}

// SceneDraft 脚本生成阶段的场景草稿，不直接返回给调用方
type SceneDraft struct {
	SceneNumber int    `json:"scene_number"`
	Text        string `json:"text"`
	ImagePrompt string `json:"image_prompt"`
}

// Scene 最终场景
type Scene struct {
	SceneNumber int    `json:"scene_number"`
	Text        string `json:"text"`
	ImageURL    string `json:"image_url"` // 图片URL或data URL，永不为空
	AudioURL    string `json:"audio_url"` // 音频地址，合成失败时为空字符串
}

// Story 故事
type Story struct {
	Title  string  `json:"title"`
	Scenes []Scene `json:"scenes"`
}

// CompleteStoryResult 完整故事生成结果
type CompleteStoryResult struct {
	Story          Story    `json:"story"`
	CharacterImage string   `json:"character_image"`
	TotalScenes    int      `json:"total_scenes"`
	Degraded       []string `json:"degraded,omitempty"` // 使用了降级结果的步骤
}

// ImageRequest 图片生成请求
type ImageRequest struct {
	Prompt  string
	Size    string
	Quality string
	Seed    *int64 // 支持seed的后端使用，nil表示随机
}

// ImageResult 图片生成结果
type ImageResult struct {
	Reference string // 图片URL或data URL
	Anchor    string // 后端返回的一致性标识，没有时为空
}
