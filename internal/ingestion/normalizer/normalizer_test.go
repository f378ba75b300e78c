package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Java并发", "并发编程"},
		{"并发编程", "并发编程"},
		{"缓存", "Redis"},
		{" Kafka ", "消息队列"},
		{"操作系统", "操作系统"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Category(tt.raw), tt.raw)
	}
}

func TestSubCategory(t *testing.T) {
	assert.Equal(t, "缓存", SubCategory("缓存", "", "Redis"))
	assert.Equal(t, "持久化", SubCategory("缓存", " 持久化 ", "Redis"))
	assert.Equal(t, "", SubCategory("并发编程", "", "并发编程"))
	assert.Equal(t, "Java并发", SubCategory("Java并发", "", "并发编程"))
	assert.Equal(t, "", SubCategory("", "", ""))
}

func TestIconAndSortOrder(t *testing.T) {
	assert.Equal(t, "database", Icon("Redis"))
	assert.Equal(t, "thunderbolt", Icon("并发编程"))
	assert.Equal(t, "book", Icon("操作系统"))

	assert.Less(t, SortOrder("Redis"), SortOrder("并发编程"))
	assert.Equal(t, unorderedCategory, SortOrder("操作系统"))
}

func TestIsSkipped(t *testing.T) {
	assert.True(t, IsSkipped("八股文 MOC"))
	assert.True(t, IsSkipped("八股准备手册"))
	assert.False(t, IsSkipped("线程池有哪些应用场景？"))
	assert.Len(t, SkipStems(), len(skipStems))
}

func TestSourcePriority(t *testing.T) {
	assert.Greater(t, SourcePriority(SourceYuque), SourcePriority(SourceFeishu))
	assert.Greater(t, SourcePriority(SourceFeishu), SourcePriority("local"))
	assert.Equal(t, 0, SourcePriority("local"))
}

func TestSourceForURL(t *testing.T) {
	tests := []struct {
		url    string
		source string
		ok     bool
	}{
		{"https://www.yuque.com/magestack/open8gu/thread-pool", SourceYuque, true},
		{"https://yuque.com/x", SourceYuque, true},
		{"https://nageoffer.feishu.cn/wiki/thread-pool", SourceFeishu, true},
		{"https://other.feishu.cn/wiki/x", "", false},
		{"https://open8gu.com/redis/fast/", "", false},
		{"https://notyuque.com/x", "", false},
		{"not a url", "", false},
	}
	for _, tt := range tests {
		source, ok := SourceForURL(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.source, source, tt.url)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1. 线程池有哪些应用场景？", "线程池有哪些应用场景？"},
		{"✅ 缓存击穿怎么处理？", "缓存击穿怎么处理？"},
		{"✅️ 2、 缓存雪崩", "缓存雪崩"},
		{"[x] 三、什么是 CAS", "什么是 CAS"},
		{"十）  Redis   为什么快", "Redis 为什么快"},
		{"- 12: HashMap 原理", "HashMap 原理"},
		{"3.5 倍扩容的原因", "3.5 倍扩容的原因"},
		{"一致性哈希", "一致性哈希"},
		{"  ", PlaceholderTitle},
		{"✅ 1.", PlaceholderTitle},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanTitle(tt.in), tt.in)
	}
}

func TestDedupeKey(t *testing.T) {
	assert.Equal(t, DedupeKey("1. 线程池有哪些应用场景？"), DedupeKey("线程池有哪些应用场景?"))
	assert.Equal(t, DedupeKey("Redis（持久化），RDB"), DedupeKey("redis(持久化),rdb"))
	assert.Equal(t, DedupeKey("什么是  CAS"), DedupeKey("✅ 什么是 cas"))
	assert.NotEqual(t, DedupeKey("什么是 CAS"), DedupeKey("什么是 AQS"))
	assert.Equal(t, "redis 为什么快?", DedupeKey("Redis 为什么快？"))
}
