package views

import (
	"context"
	"errors"
	"testing"

	"tritonhub/store"
)

func TestItemToggleRevertsOnFailure(t *testing.T) {
	f := newFakeStore()
	f.add(store.TableChecklist, store.Row{
		"id": "i1", "text": "Chalk", "checked": false, "channel_id": "ch1",
	})

	backend, _ := newTestBackend(f)
	list := NewChecklist(backend, chatUser)
	if err := list.SwitchChannel(context.Background(), "ch1"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	f.failUpdate[store.TableChecklist] = errors.New("boom")
	if err := list.Toggle(context.Background(), "i1"); err == nil {
		t.Fatalf("expected toggle failure")
	}
	item, _ := list.Item("i1")
	if item.Checked {
		t.Fatalf("failed toggle left the optimistic check")
	}

	delete(f.failUpdate, store.TableChecklist)
	if err := list.Toggle(context.Background(), "i1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	item, _ = list.Item("i1")
	if !item.Checked {
		t.Fatalf("successful toggle did not stick")
	}
}

func TestItemListsAreIndependent(t *testing.T) {
	f := newFakeStore()
	f.add(store.TableChecklist, store.Row{
		"id": "g1", "text": "Rope", "checked": false, "channel_id": "gear-ch",
	})
	f.add(store.TableFood, store.Row{
		"id": "f1", "text": "Water", "checked": true, "channel_id": "food-ch",
	})

	backend, _ := newTestBackend(f)
	gear := NewChecklist(backend, chatUser)
	food := NewFoodList(backend, chatUser)

	if err := gear.SwitchChannel(context.Background(), "gear-ch"); err != nil {
		t.Fatalf("gear switch: %v", err)
	}
	if err := food.SwitchChannel(context.Background(), "food-ch"); err != nil {
		t.Fatalf("food switch: %v", err)
	}

	if len(gear.Items()) != 1 || gear.Items()[0].ID != "g1" {
		t.Fatalf("gear list wrong: %+v", gear.Items())
	}
	if len(food.Items()) != 1 || food.Items()[0].ID != "f1" {
		t.Fatalf("food list wrong: %+v", food.Items())
	}
	if _, ok := gear.Item("f1"); ok {
		t.Fatalf("food row leaked into the gear list")
	}
}

func TestItemAddFillsDefaults(t *testing.T) {
	f := newFakeStore()
	backend, _ := newTestBackend(f)
	list := NewFoodList(backend, chatUser)
	if err := list.SwitchChannel(context.Background(), "food-ch"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	if err := list.Add(context.Background(), "Trail mix"); err != nil {
		t.Fatalf("add: %v", err)
	}
	items := list.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Checked {
		t.Fatalf("new item must start unchecked")
	}
	if items[0].CreatedBy != chatUser.ID {
		t.Fatalf("created_by not stamped: %+v", items[0])
	}
}
