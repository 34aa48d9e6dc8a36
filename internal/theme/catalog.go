package theme

import "strings"

// ID 教育主题标识
type ID int

const (
	Friendship ID = iota // 默认主题
	HealthyEating
	Safety
	Money
	Emotions
)

// Guidance 主题的叙事指引
type Guidance struct {
	Context string   // 故事要传达的学习目标
	Lessons []string // 核心教训，按顺序
	Cast    string   // 登场角色
	Setting string   // 故事背景
}

// Theme 主题元数据，供/themes展示
type Theme struct {
	ID          ID       `json:"-"`
	Value       string   `json:"value"`
	Title       string   `json:"title"`
	Emoji       string   `json:"emoji"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Moral       string   `json:"moral"`
	Keywords    []string `json:"keywords"`
	Color       string   `json:"color"`
	BgColor     string   `json:"bgColor"`
	Examples    []string `json:"examples"`

	guidance Guidance
}

// Guidance 返回主题的叙事指引
func (t Theme) Guidance() Guidance {
	return t.guidance
}

var catalog = []Theme{
	{
		ID:          HealthyEating,
		Value:       "healthy_eating",
		Title:       "식습관 개선",
		Emoji:       "🥕",
		Description: "골고루 먹는 즐거움과 건강한 식사 습관을 배워요",
		Moral:       "여러 가지 음식을 골고루 먹으면 몸과 마음이 튼튼해져요",
		Keywords:    []string{"건강", "영양", "골고루"},
		Color:       "from-green-400 to-emerald-600",
		BgColor:     "bg-green-50",
		Examples:    []string{"🥦 브로콜리 숲의 비밀", "🍓 딸기 마을 축제", "🥛 튼튼 우유 탐험대"},
		guidance: Guidance{
			Context: "건강한 식습관의 중요성을 배우는",
			Lessons: []string{"다양한 음식 골고루 먹기", "편식하지 않기", "건강한 간식 선택"},
			Cast:    "영양소 요정들, 건강한 음식 친구들",
			Setting: "마법의 음식 나라나 건강 레스토랑",
		},
	},
	{
		ID:          Friendship,
		Value:       "friendship_skills",
		Title:       "교우관계",
		Emoji:       "🤝",
		Description: "친구와 사이좋게 지내고 다툼을 풀어 가는 방법을 배워요",
		Moral:       "서로의 마음을 이해하고 배려할 때 진짜 친구가 돼요",
		Keywords:    []string{"우정", "배려", "화해"},
		Color:       "from-blue-400 to-sky-600",
		BgColor:     "bg-blue-50",
		Examples:    []string{"🌈 무지개 다리 화해 작전", "🎈 새 친구 환영 잔치", "🧩 함께 맞추는 퍼즐"},
		guidance: Guidance{
			Context: "친구들과의 올바른 관계 형성을 배우는",
			Lessons: []string{"배려와 나눔", "협력의 중요성", "다름 인정하기"},
			Cast:    "다양한 성격의 친구들, 지혜로운 선생님",
			Setting: "학교, 놀이터, 친구들과의 모험",
		},
	},
	{
		ID:          Safety,
		Value:       "safety_habits",
		Title:       "안전습관",
		Emoji:       "🛡️",
		Description: "생활 속에서 나를 지키는 안전 규칙을 배워요",
		Moral:       "안전 규칙을 지키면 나도 친구도 함께 지킬 수 있어요",
		Keywords:    []string{"안전", "조심", "약속"},
		Color:       "from-red-400 to-orange-600",
		BgColor:     "bg-red-50",
		Examples:    []string{"🚦 신호등 삼총사", "🚒 꼬마 소방관의 하루", "🏠 우리 집 안전 탐정"},
		guidance: Guidance{
			Context: "일상생활에서의 안전 수칙을 배우는",
			Lessons: []string{"교통안전 지키기", "화재 예방", "놀이 안전"},
			Cast:    "안전 수호천사, 경찰관, 소방관",
			Setting: "집, 학교, 길거리, 놀이터",
		},
	},
	{
		ID:          Money,
		Value:       "financial_literacy",
		Title:       "경제관념",
		Emoji:       "💰",
		Description: "용돈을 아끼고 계획적으로 쓰는 방법을 배워요",
		Moral:       "조금씩 모으고 계획해서 쓰면 더 큰 꿈을 이룰 수 있어요",
		Keywords:    []string{"저축", "계획", "지혜"},
		Color:       "from-yellow-400 to-amber-600",
		BgColor:     "bg-yellow-50",
		Examples:    []string{"🐷 저금통 돼지의 꿈", "🏪 꼬마 가게 주인", "🗝️ 보물 상자의 열쇠"},
		guidance: Guidance{
			Context: "돈의 소중함과 올바른 소비 습관을 배우는",
			Lessons: []string{"저축의 중요성", "필요와 욕구 구분", "계획적 소비"},
			Cast:    "돼지 저금통, 은행원, 현명한 할머니",
			Setting: "상점, 은행, 집안에서의 용돈 관리",
		},
	},
	{
		ID:          Emotions,
		Value:       "emotional_intelligence",
		Title:       "감정표현",
		Emoji:       "💝",
		Description: "내 마음을 알아차리고 건강하게 표현하는 방법을 배워요",
		Moral:       "내 마음을 말로 표현하고 친구의 마음에 귀 기울이는 것이 중요해요",
		Keywords:    []string{"감정", "공감", "표현"},
		Color:       "from-pink-400 to-rose-600",
		BgColor:     "bg-pink-50",
		Examples:    []string{"😊 감정 구름 여행", "🤗 토닥토닥 숲", "💌 마음을 전하는 편지"},
		guidance: Guidance{
			Context: "자신의 감정을 올바르게 표현하는 방법을 배우는",
			Lessons: []string{"감정 인식하기", "건전한 표현 방법", "타인 감정 이해"},
			Cast:    "감정 요정들, 이해심 많은 가족",
			Setting: "가정, 감정의 정원, 마음의 세계",
		},
	},
}

func init() {
	for i := range catalog {
		catalog[i].Label = catalog[i].Emoji + " " + catalog[i].Title
	}
}

// Resolve 按韩文标题或英文value查找主题，找不到时返回默认主题和false
func Resolve(id string) (Theme, bool) {
	key := strings.TrimSpace(id)
	for _, t := range catalog {
		if t.Title == key || strings.EqualFold(t.Value, key) {
			return t, true
		}
	}
	return Default(), false
}

// Lookup 返回主题指引，永不失败
func Lookup(id string) Guidance {
	t, _ := Resolve(id)
	return t.guidance
}

// DisplayName 用于故事标题和提示词的主题名，识别到的主题返回韩文标题，否则原样返回
func DisplayName(id string) string {
	if t, ok := Resolve(id); ok {
		return t.Title
	}
	return strings.TrimSpace(id)
}

// Default 默认主题（交友）
func Default() Theme {
	for _, t := range catalog {
		if t.ID == Friendship {
			return t
		}
	}
	panic("theme: default entry missing from catalog")
}

// List 返回全部主题，按展示顺序
func List() []Theme {
	out := make([]Theme, len(catalog))
	copy(out, catalog)
	return out
}
