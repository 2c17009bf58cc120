package events_test

import (
	"testing"

	"github.com/ardanlabs/powledger/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestEvents(t *testing.T) {
	t.Log("Given the need to broadcast events to receivers.")
	{
		t.Logf("\tTest 0:\tWhen two receivers are registered.")
		{
			evts := events.New()

			ch1 := evts.Acquire("one")
			ch2 := evts.Acquire("two")

			if evts.Acquire("one") != ch1 {
				t.Fatalf("\t%s\tTest 0:\tShould get the same channel for the same id.", failed)
			}
			if evts.Count() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould have 2 receivers, got %d.", failed, evts.Count())
			}
			t.Logf("\t%s\tTest 0:\tShould have 2 receivers.", success)

			evts.Send("state: MineNextBlock: MINING: APPENDED")

			for i, ch := range []<-chan string{ch1, ch2} {
				if msg := <-ch; msg != "state: MineNextBlock: MINING: APPENDED" {
					t.Fatalf("\t%s\tTest 0:\tShould deliver the message to receiver %d, got %q.", failed, i, msg)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould deliver the message to every receiver.", success)

			if err := evts.Release("one"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to release: %v", failed, err)
			}
			if _, open := <-ch1; open {
				t.Fatalf("\t%s\tTest 0:\tShould close the released channel.", failed)
			}
			if err := evts.Release("one"); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould not release the same id twice.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould close the channel once on release.", success)

			evts.Shutdown()
			if _, open := <-ch2; open || evts.Count() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould close every channel on shutdown.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould close every channel on shutdown.", success)
		}

		t.Logf("\tTest 1:\tWhen a receiver falls behind.")
		{
			evts := events.New()
			ch := evts.Acquire("slow")

			for range 105 {
				evts.Send("event")
			}

			if len(ch) != 100 || evts.Dropped("slow") != 5 {
				t.Fatalf("\t%s\tTest 1:\tShould drop what doesn't fit, buffered %d dropped %d.", failed, len(ch), evts.Dropped("slow"))
			}
			t.Logf("\t%s\tTest 1:\tShould drop what doesn't fit without blocking.", success)
		}
	}
}
