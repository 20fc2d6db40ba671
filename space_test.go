package qchsh

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const timeoutMsg = "Test timed out waiting for value retrieval"

func TestResultSpace(t *testing.T) {
	Convey("Given a result space", t, func() {
		rs := NewResultSpace()

		Reset(func() {
			rs.Close()
		})

		Convey("A value stored before awaiting is delivered immediately", func() {
			rs.Store("restart-0", 2.5, nil, time.Minute)

			select {
			case <-time.After(time.Second):
				t.Fatal(timeoutMsg)
			case value := <-rs.Await("restart-0"):
				So(value.Value, ShouldEqual, 2.5)
				So(value.Error, ShouldBeNil)
			}
		})

		Convey("Every waiter receives a value stored later", func() {
			first := rs.Await("restart-1")
			second := rs.Await("restart-1")

			boom := errors.New("diverged")
			rs.Store("restart-1", nil, boom, 0)

			for _, ch := range []chan ResultValue{first, second} {
				select {
				case <-time.After(time.Second):
					t.Fatal(timeoutMsg)
				case value := <-ch:
					So(value.Error, ShouldEqual, boom)
				}

				_, open := <-ch
				So(open, ShouldBeFalse)
			}
		})

		Convey("CleanUp drops expired values and keeps those without a TTL", func() {
			rs.Store("short", 1, nil, time.Millisecond)
			rs.Store("forever", 2, nil, 0)
			time.Sleep(10 * time.Millisecond)

			rs.CleanUp()

			rs.mu.RLock()
			_, short := rs.values["short"]
			_, forever := rs.values["forever"]
			rs.mu.RUnlock()

			So(short, ShouldBeFalse)
			So(forever, ShouldBeTrue)
		})

		Convey("Close can be called more than once", func() {
			rs.Close()
			So(func() { rs.Close() }, ShouldNotPanic)
		})
	})
}
