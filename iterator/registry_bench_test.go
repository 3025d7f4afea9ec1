package iterator

import (
	"context"
	"testing"

	"github.com/axmq/ds/store"
	"github.com/axmq/ds/topic"
)

func BenchmarkRegistry_AddIteratorExisting(b *testing.B) {
	s := store.NewMemoryStore()
	defer s.Close()
	r, _ := NewRegistry(Config{Store: s})
	ctx := context.Background()
	filter := topic.MustParseFilter("home/+/sensor/#")
	_, _, _, _ = r.AddIterator(ctx, "client1", filter)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _, _ = r.AddIterator(ctx, "client1", filter)
	}
}

func BenchmarkRegistry_GetIteratorID(b *testing.B) {
	s := store.NewMemoryStore()
	defer s.Close()
	r, _ := NewRegistry(Config{Store: s})
	ctx := context.Background()
	filter := topic.MustParseFilter("home/+/sensor/#")
	_, _, _, _ = r.AddIterator(ctx, "client1", filter)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = r.GetIteratorID(ctx, "client1", filter)
		}
	})
}

func BenchmarkRefKey(b *testing.B) {
	filter := topic.MustParseFilter("home/+/sensor/#")
	for i := 0; i < b.N; i++ {
		_, _ = RefKey("client1", filter)
	}
}
