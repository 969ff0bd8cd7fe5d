package models

import (
	"fmt"

	"github.com/iudanet/tabsync/pkg/api"
)

// ToWire конвертирует операцию в плоский wire формат pkg/api
func ToWire(op Operation) api.Operation {
	wire := api.Operation{
		Type:      string(op.Kind()),
		ID:        op.EntityID(),
		Timestamp: op.OccurredAt(),
	}

	switch o := op.(type) {
	case UpsertTab:
		wire.Tab = &api.TabData{
			WindowID: o.Tab.WindowID,
			URL:      o.Tab.URL,
			Title:    o.Tab.Title,
			Active:   o.Tab.Active,
			Index:    o.Tab.Index,
		}
	case CloseTab, TrackWindow, UntrackWindow:
		// только id и timestamp
	case SetActive:
		active := o.Active
		wire.Active = &active
	case MoveTab:
		index := o.Index
		wire.WindowID = o.WindowID
		wire.Index = &index
	case ChangeURL:
		wire.URL = o.URL
		wire.Title = o.Title
	case SetWindowFocus:
		focused := o.Focused
		wire.Focused = &focused
	default:
		panic(fmt.Sprintf("models: unknown operation type %T", op))
	}

	return wire
}

// ToWireBatch конвертирует батч операций в wire формат
func ToWireBatch(ops []Operation) []api.Operation {
	wire := make([]api.Operation, 0, len(ops))
	for _, op := range ops {
		wire = append(wire, ToWire(op))
	}
	return wire
}

// FromWire восстанавливает типизированную операцию из wire формата.
// Неизвестный тип или отсутствие обязательного поля варианта это ошибка:
// некорректные операции отклоняются на границе, до постановки в очередь.
func FromWire(wire api.Operation) (Operation, error) {
	if wire.ID == "" {
		return nil, fmt.Errorf("operation %q has empty id", wire.Type)
	}

	switch Kind(wire.Type) {
	case KindUpsertTab:
		if wire.Tab == nil {
			return nil, fmt.Errorf("upsert_tab %q has no tab data", wire.ID)
		}
		return UpsertTab{
			ID: wire.ID,
			Tab: TabData{
				WindowID: wire.Tab.WindowID,
				URL:      wire.Tab.URL,
				Title:    wire.Tab.Title,
				Active:   wire.Tab.Active,
				Index:    wire.Tab.Index,
			},
			Timestamp: wire.Timestamp,
		}, nil
	case KindCloseTab:
		return CloseTab{ID: wire.ID, Timestamp: wire.Timestamp}, nil
	case KindSetActive:
		if wire.Active == nil {
			return nil, fmt.Errorf("set_active %q has no active flag", wire.ID)
		}
		return SetActive{ID: wire.ID, Active: *wire.Active, Timestamp: wire.Timestamp}, nil
	case KindMoveTab:
		if wire.WindowID == "" || wire.Index == nil {
			return nil, fmt.Errorf("move_tab %q has no target window or index", wire.ID)
		}
		return MoveTab{ID: wire.ID, WindowID: wire.WindowID, Index: *wire.Index, Timestamp: wire.Timestamp}, nil
	case KindChangeURL:
		if wire.URL == "" {
			return nil, fmt.Errorf("change_url %q has empty url", wire.ID)
		}
		return ChangeURL{ID: wire.ID, URL: wire.URL, Title: wire.Title, Timestamp: wire.Timestamp}, nil
	case KindTrackWindow:
		return TrackWindow{ID: wire.ID, Timestamp: wire.Timestamp}, nil
	case KindUntrackWindow:
		return UntrackWindow{ID: wire.ID, Timestamp: wire.Timestamp}, nil
	case KindSetWindowFocus:
		if wire.Focused == nil {
			return nil, fmt.Errorf("set_window_focus %q has no focused flag", wire.ID)
		}
		return SetWindowFocus{ID: wire.ID, Focused: *wire.Focused, Timestamp: wire.Timestamp}, nil
	default:
		return nil, fmt.Errorf("unknown operation type %q", wire.Type)
	}
}

// FromWireBatch восстанавливает батч операций из wire формата.
// Останавливается на первой некорректной операции.
func FromWireBatch(wire []api.Operation) ([]Operation, error) {
	ops := make([]Operation, 0, len(wire))
	for i, w := range wire {
		op, err := FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}
