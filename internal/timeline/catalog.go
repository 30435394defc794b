package timeline

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// RuleKind selects how a template's date is derived from the wedding date.
type RuleKind string

const (
	// RuleWindow schedules against the outer bound of a (min, max) months window.
	RuleWindow RuleKind = "window"
	// RuleDays is the older fixed days-before-wedding form.
	RuleDays RuleKind = "days"
	// RuleWeddingDay pins the item to the wedding date itself.
	RuleWeddingDay RuleKind = "wedding_day"
)

const daysPerMonth = 30

// Rule is a template's scheduling rule.
type Rule struct {
	Kind       RuleKind `json:"kind"`
	MinMonths  float64  `json:"min_months,omitempty"`
	MaxMonths  float64  `json:"max_months,omitempty"`
	DaysBefore int      `json:"days_before,omitempty"`
}

// Window returns a rule recommending the milestone between min and max months
// before the wedding.
func Window(minMonths, maxMonths float64) Rule {
	return Rule{Kind: RuleWindow, MinMonths: minMonths, MaxMonths: maxMonths}
}

// DaysBefore returns a fixed-offset rule.
func DaysBefore(days int) Rule {
	return Rule{Kind: RuleDays, DaysBefore: days}
}

// WeddingDay returns the rule for the wedding itself.
func WeddingDay() Rule {
	return Rule{Kind: RuleWeddingDay}
}

// leadDays is the target distance, in days, between the milestone and the wedding.
func (r Rule) leadDays() int {
	switch r.Kind {
	case RuleDays:
		return r.DaysBefore
	case RuleWindow:
		return int(math.Round(r.MaxMonths * daysPerMonth))
	default:
		return 0
	}
}

// Template is one entry of the milestone catalog.
type Template struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Icon        string   `json:"icon"`
	Description string   `json:"description"`
	Tips        []string `json:"tips"`
	// Category names the vendor search category the milestone relates to, if any.
	Category string `json:"category,omitempty"`
	Rule     Rule   `json:"rule"`
	// Priority is the fixed rank used to stagger milestones that collapse onto
	// the start date. Lower runs earlier; 1 is the first.
	Priority int  `json:"priority"`
	Weekend  bool `json:"weekend"`
}

// Catalog is an immutable, ordered list of templates.
type Catalog struct {
	templates []Template
	index     map[string]int
}

var (
	ErrEmptyCatalog     = errors.New("catalog has no templates")
	ErrInvalidTemplate  = errors.New("invalid template")
	ErrDuplicateID      = errors.New("duplicate template id")
	ErrWeddingDayNeeded = errors.New("catalog needs exactly one wedding day template")
)

// NewCatalog validates templates and returns a catalog holding its own copy of them.
func NewCatalog(templates []Template) (Catalog, error) {
	if len(templates) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	c := Catalog{
		templates: make([]Template, len(templates)),
		index:     make(map[string]int, len(templates)),
	}
	weddingDays := 0
	for i, tpl := range templates {
		if err := validateTemplate(tpl); err != nil {
			return Catalog{}, err
		}
		if _, ok := c.index[tpl.ID]; ok {
			return Catalog{}, fmt.Errorf("%w: %q", ErrDuplicateID, tpl.ID)
		}
		if tpl.Rule.Kind == RuleWeddingDay {
			weddingDays++
		}
		tpl.Tips = slices.Clone(tpl.Tips)
		c.templates[i] = tpl
		c.index[tpl.ID] = i
	}
	if weddingDays != 1 {
		return Catalog{}, ErrWeddingDayNeeded
	}
	return c, nil
}

func validateTemplate(tpl Template) error {
	if tpl.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTemplate)
	}
	if tpl.Title == "" {
		return fmt.Errorf("%w %q: empty title", ErrInvalidTemplate, tpl.ID)
	}
	if tpl.Priority < 1 {
		return fmt.Errorf("%w %q: priority must be at least 1", ErrInvalidTemplate, tpl.ID)
	}
	switch tpl.Rule.Kind {
	case RuleWindow:
		if tpl.Rule.MinMonths < 0 || tpl.Rule.MaxMonths < tpl.Rule.MinMonths {
			return fmt.Errorf("%w %q: window %.1f-%.1f months", ErrInvalidTemplate, tpl.ID, tpl.Rule.MinMonths, tpl.Rule.MaxMonths)
		}
	case RuleDays:
		if tpl.Rule.DaysBefore < 0 {
			return fmt.Errorf("%w %q: negative days_before", ErrInvalidTemplate, tpl.ID)
		}
	case RuleWeddingDay:
	default:
		return fmt.Errorf("%w %q: unknown rule %q", ErrInvalidTemplate, tpl.ID, tpl.Rule.Kind)
	}
	return nil
}

// Templates returns the templates in catalog order.
func (c Catalog) Templates() []Template {
	return slices.Clone(c.templates)
}

// Lookup returns the template with the given id.
func (c Catalog) Lookup(id string) (Template, bool) {
	i, ok := c.index[id]
	if !ok {
		return Template{}, false
	}
	return c.templates[i], true
}

func (c Catalog) Len() int { return len(c.templates) }

// DefaultCatalog returns the built-in milestone catalog.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(defaultTemplates)
	if err != nil {
		panic(fmt.Sprintf("timeline: default catalog: %v", err))
	}
	return c
}

var defaultTemplates = []Template{
	{
		ID:          "meet-parents",
		Title:       "상견례",
		Icon:        "👨‍👩‍👧‍👦",
		Description: "양가 부모님을 모시고 결혼 일정과 예산의 큰 틀을 정해요.",
		Tips: []string{
			"조용한 한정식집이나 호텔 레스토랑 룸을 미리 예약하세요.",
			"예식 시기와 지역, 예산 분담에 대한 의견을 미리 나눠 두세요.",
		},
		Rule:     Window(10, 12),
		Priority: 1,
		Weekend:  true,
	},
	{
		ID:          "book-venue",
		Title:       "웨딩홀 계약",
		Icon:        "🏛️",
		Description: "원하는 날짜와 시간대의 웨딩홀을 투어하고 계약해요.",
		Tips: []string{
			"인기 날짜는 1년 전에도 마감되니 투어는 빠를수록 좋아요.",
			"보증 인원, 식대, 대관료, 위약 규정을 꼭 비교하세요.",
			"주차 공간과 대중교통 접근성을 확인하세요.",
		},
		Category: "wedding-hall",
		Rule:     Window(8, 10),
		Priority: 2,
		Weekend:  true,
	},
	{
		ID:          "book-sdm",
		Title:       "스드메 계약",
		Icon:        "📸",
		Description: "스튜디오, 드레스, 메이크업 업체를 정하고 패키지를 계약해요.",
		Tips: []string{
			"포트폴리오에서 원하는 분위기의 사진을 골라 두세요.",
			"추가금 항목(원본, 수정본, 헬퍼비)을 계약서에 명시하세요.",
		},
		Category: "studio",
		Rule:     Window(6, 8),
		Priority: 3,
	},
	{
		ID:          "plan-honeymoon",
		Title:       "신혼여행 예약",
		Icon:        "✈️",
		Description: "여행지를 정하고 항공권과 숙소를 예약해요.",
		Tips: []string{
			"여권 만료일이 6개월 이상 남았는지 확인하세요.",
			"성수기에는 항공권이 빨리 마감돼요.",
		},
		Rule:     Window(5, 6),
		Priority: 4,
	},
	{
		ID:          "choose-dress",
		Title:       "드레스 투어",
		Icon:        "👗",
		Description: "드레스샵을 돌아보며 본식과 촬영 드레스를 골라요.",
		Tips: []string{
			"하루에 2~3곳 정도가 적당해요.",
			"피팅 사진 촬영이 가능한지 미리 확인하세요.",
		},
		Category: "dress",
		Rule:     Window(4, 5),
		Priority: 5,
		Weekend:  true,
	},
	{
		ID:          "photo-shoot",
		Title:       "웨딩 촬영",
		Icon:        "📷",
		Description: "스튜디오 또는 야외에서 웨딩 사진을 촬영해요.",
		Tips: []string{
			"촬영 전날은 충분히 자고 붓기를 관리하세요.",
			"소품과 컨셉 시안을 작가님과 미리 공유하세요.",
		},
		Category: "studio",
		Rule:     Window(3, 4),
		Priority: 6,
		Weekend:  true,
	},
	{
		ID:          "order-invitations",
		Title:       "청첩장 주문",
		Icon:        "💌",
		Description: "청첩장 디자인을 고르고 인원에 맞게 주문해요.",
		Tips: []string{
			"하객 명단을 먼저 정리하면 수량을 정하기 쉬워요.",
			"모바일 청첩장도 함께 준비하세요.",
		},
		Rule:     Window(2, 3),
		Priority: 7,
	},
	{
		ID:          "wedding-rings",
		Title:       "예물·반지 준비",
		Icon:        "💍",
		Description: "결혼 반지와 예물을 맞춰요.",
		Tips: []string{
			"제작 기간이 3~4주 걸리는 경우가 많아요.",
			"각인 문구를 미리 정해 두세요.",
		},
		Rule:     Window(2, 3),
		Priority: 8,
	},
	{
		ID:          "makeup-rehearsal",
		Title:       "메이크업 리허설",
		Icon:        "💄",
		Description: "본식 메이크업과 헤어 스타일을 미리 맞춰 봐요.",
		Tips: []string{
			"원하는 스타일 사진을 준비해 가세요.",
		},
		Category: "makeup",
		Rule:     Window(1, 2),
		Priority: 9,
	},
	{
		ID:          "send-invitations",
		Title:       "청첩장 발송",
		Icon:        "📮",
		Description: "모임과 우편으로 청첩장을 전달해요.",
		Tips: []string{
			"예식 4~6주 전에는 전달을 마치는 것이 예의예요.",
		},
		Rule:     Window(1, 1.5),
		Priority: 10,
	},
	{
		ID:          "final-fitting",
		Title:       "드레스 가봉",
		Icon:        "👰",
		Description: "본식 드레스를 최종 피팅하고 수선해요.",
		Tips: []string{
			"본식 당일 신을 구두를 가져가세요.",
		},
		Category: "dress",
		Rule:     Window(0.5, 1),
		Priority: 11,
	},
	{
		ID:          "final-check",
		Title:       "최종 점검",
		Icon:        "✅",
		Description: "업체별 시간표와 식순, 축가와 사회자를 최종 확인해요.",
		Tips: []string{
			"당일 연락망을 만들어 도우미에게 공유하세요.",
			"축의금 접수 담당자를 정해 두세요.",
		},
		Rule:     DaysBefore(7),
		Priority: 12,
	},
	{
		ID:          "wedding-day",
		Title:       "결혼식",
		Icon:        "💒",
		Description: "드디어 결혼식 날이에요. 축하해요!",
		Tips: []string{
			"아침을 꼭 챙겨 드세요.",
		},
		Rule:     WeddingDay(),
		Priority: 13,
	},
}
