package keylock_test

import (
	"sync"
	"testing"

	"github.com/okian/ringside/pkg/keylock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestArena(t *testing.T) {
	Convey("Given a lock arena", t, func() {
		a := keylock.New()

		Convey("When many goroutines increment a counter under the same key", func() {
			var wg sync.WaitGroup
			counter := 0
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := a.Lock("bout-1")
					defer unlock()
					counter++
				}()
			}
			wg.Wait()

			Convey("Then no increment is lost and the key is released", func() {
				So(counter, ShouldEqual, 100)
				So(a.Len(), ShouldEqual, 0)
			})
		})

		Convey("When two different keys are held", func() {
			u1 := a.Lock("a")
			u2 := a.Lock("b")

			Convey("Then both are tracked independently", func() {
				So(a.Len(), ShouldEqual, 2)
				u1()
				u2()
				So(a.Len(), ShouldEqual, 0)
			})
		})
	})
}
