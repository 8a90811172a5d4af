package mining

import (
	"context"
	"math/rand"
	"strconv"
	"testing"
)

func BenchmarkMine(b *testing.B) {
	raw := randomTransactions(rand.New(rand.NewSource(1)), 200)
	for _, workers := range []int{1, 4} {
		m, err := New(Options{Workers: workers, Prune: true}, nil)
		if err != nil {
			b.Fatal(err)
		}
		b.Run("workers="+strconv.Itoa(workers), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := m.Mine(context.Background(), raw, 0.1); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
