package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/predictive-scaler/pkg/models"
)

type MessageType string

const (
	MessageTypeSample       MessageType = "sample"
	MessageTypePredictions  MessageType = "predictions"
	MessageTypeScalingEvent MessageType = "scaling_event"
	MessageTypeScalingFail  MessageType = "scaling_failed"
	MessageTypeModel        MessageType = "model"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeError        MessageType = "error"
	MessageTypeSubscription MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Event     string      `json:"event,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

// IncomingMessage is a client request to change its event filter.
type IncomingMessage struct {
	Type   string   `json:"type"`
	Events []string `json:"events,omitempty"`
}

// messageType maps an event to the client-facing message type. Events
// without a mapping are not forwarded.
func messageType(t models.EventType) MessageType {
	switch t {
	case models.EventTypeSampleCollected:
		return MessageTypeSample
	case models.EventTypeSampleDegraded:
		return MessageTypeAlert
	case models.EventTypePredictionsMade:
		return MessageTypePredictions
	case models.EventTypeScalingCompleted:
		return MessageTypeScalingEvent
	case models.EventTypeScalingFailed:
		return MessageTypeScalingFail
	case models.EventTypeModelTrained, models.EventTypeTrainingSkipped:
		return MessageTypeModel
	case models.EventTypeError:
		return MessageTypeError
	default:
		return ""
	}
}

// FromEvent converts an internal event, or returns nil if it is not
// forwarded to clients.
func FromEvent(event *models.Event) *OutgoingMessage {
	msgType := messageType(event.Type)
	if msgType == "" {
		return nil
	}
	return &OutgoingMessage{
		Type:      msgType,
		Event:     string(event.Type),
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		TraceID:   event.TraceID,
		Data:      event.Data,
	}
}
