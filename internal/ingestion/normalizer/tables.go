package normalizer

// The lookup tables below are static configuration. They are unexported and
// only reachable through functions so no caller can mutate them.

// categoryAliases folds raw root folder names onto the canonical taxonomy.
// Canonical names map to themselves implicitly.
var categoryAliases = map[string]string{
	"Java并发":     "并发编程",
	"JUC":        "并发编程",
	"多线程":        "并发编程",
	"缓存":         "Redis",
	"Redis缓存":    "Redis",
	"Kafka":      "消息队列",
	"RocketMQ":   "消息队列",
	"RabbitMQ":   "消息队列",
	"MQ":         "消息队列",
	"Spring":     "框架八股",
	"SpringBoot": "框架八股",
	"MyBatis":    "框架八股",
	"分布式系统":      "分布式",
	"微服务":        "分布式",
}

// defaultSubCategories names the sub-category assigned to files sitting
// directly under a raw root that was merged into a broader category.
var defaultSubCategories = map[string]string{
	"Java并发":     "Java并发",
	"JUC":        "JUC",
	"多线程":        "多线程",
	"缓存":         "缓存",
	"Redis缓存":    "缓存",
	"Kafka":      "Kafka",
	"RocketMQ":   "RocketMQ",
	"RabbitMQ":   "RabbitMQ",
	"MQ":         "消息队列基础",
	"Spring":     "Spring",
	"SpringBoot": "SpringBoot",
	"MyBatis":    "MyBatis",
	"分布式系统":      "分布式理论",
	"微服务":        "微服务",
}

var categoryIcons = map[string]string{
	"Redis": "database",
	"并发编程":  "thunderbolt",
	"消息队列":  "mail",
	"框架八股":  "appstore",
	"缓存实战":  "rocket",
	"分布式":   "cloud-server",
}

const defaultIcon = "book"

// categoryOrder is the display order of well-known categories. Unknown
// categories sort after them.
var categoryOrder = map[string]int{
	"Redis": 1,
	"并发编程":  2,
	"消息队列":  3,
	"框架八股":  4,
	"缓存实战":  5,
	"分布式":   6,
}

const unorderedCategory = 100

// skipStems lists manual and overview documents that live next to the
// questions but are not questions themselves.
var skipStems = map[string]struct{}{
	"八股准备手册":             {},
	"八股复习总攻略":            {},
	"八股文 MOC":            {},
	"八股文原始提取":            {},
	"八股文学习-Claude个性化建议":  {},
	"八股文学习材料-Codex分析":    {},
	"八股文学习材料-最终版":        {},
	"八股知识画像":             {},
}

// Source names of the two authoring tools.
const (
	SourceYuque  = "yuque"
	SourceFeishu = "feishu"
)

// sourcePriority ranks sources; higher wins. Unlisted sources rank 0.
var sourcePriority = map[string]int{
	SourceYuque:  2,
	SourceFeishu: 1,
}

// businessDomains maps each authoritative link domain to its source.
var businessDomains = map[string]string{
	"yuque.com":           SourceYuque,
	"nageoffer.feishu.cn": SourceFeishu,
}
