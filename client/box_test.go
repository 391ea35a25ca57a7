package client

import (
	"testing"
	"time"
)

func TestBox(t *testing.T) {
	s0 := &Snapshot{Seq: 1}
	s1 := &Snapshot{Seq: 2}
	box := NewBox()
	box.Put(s0)
	go func() {
		time.Sleep(1000)
		box.Put(s1)
	}()
	v := box.Wait(s0)
	if v != s1 {
		t.Errorf("wrong pointer")
	}
}

func TestBox_listen(t *testing.T) {
	box := NewBox()
	ch := box.Listen(nil)
	s := &Snapshot{Seq: 3}
	box.Put(s)
	select {
	case v := <-ch:
		if v != s {
			t.Errorf("wrong pointer")
		}
	case <-time.After(time.Second):
		t.Fatal("no wake up")
	}
	if box.Get() != s {
		t.Errorf("get lost it")
	}
}
