// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "testing"

func TestFeed_PublishAndCurrent(t *testing.T) {
	f := NewFeed[int]()

	if got := f.Current(); got != 0 {
		t.Errorf("Current() before publish = %d, want zero value", got)
	}

	f.Publish(7)
	if got := f.Current(); got != 7 {
		t.Errorf("Current() = %d, want 7", got)
	}
}

func TestFeed_SubscribersInvokedInOrder(t *testing.T) {
	f := NewFeed[string]()

	var order []string
	f.Subscribe(func(v string) { order = append(order, "a:"+v) })
	f.Subscribe(func(v string) { order = append(order, "b:"+v) })

	f.Publish("x")

	if len(order) != 2 || order[0] != "a:x" || order[1] != "b:x" {
		t.Errorf("delivery order = %v", order)
	}
}

func TestFeed_Unsubscribe(t *testing.T) {
	f := NewFeed[int]()

	var aCount, bCount int
	idA := f.Subscribe(func(int) { aCount++ })
	f.Subscribe(func(int) { bCount++ })

	f.Publish(1)
	f.Unsubscribe(idA)
	f.Publish(2)

	if aCount != 1 {
		t.Errorf("unsubscribed callback invoked %d times, want 1", aCount)
	}
	if bCount != 2 {
		t.Errorf("remaining callback invoked %d times, want 2", bCount)
	}
}

func TestFeed_UnsubscribeUnknownTokenIgnored(t *testing.T) {
	f := NewFeed[int]()
	f.Unsubscribe(99) // must not panic
	f.Publish(1)
}

// TestFeed_IsolatedInstances verifies that two feeds share no hidden state.
func TestFeed_IsolatedInstances(t *testing.T) {
	f1 := NewFeed[int]()
	f2 := NewFeed[int]()

	var got1, got2 int
	f1.Subscribe(func(v int) { got1 = v })
	f2.Subscribe(func(v int) { got2 = v })

	f1.Publish(10)
	if got1 != 10 || got2 != 0 {
		t.Errorf("cross-feed delivery: got1=%d got2=%d", got1, got2)
	}
	if f2.Current() != 0 {
		t.Errorf("f2.Current() = %d, want untouched", f2.Current())
	}
}
