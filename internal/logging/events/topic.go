package events

import "github.com/mqttscope/mqttscope/internal/logging"

type TopicTracer struct{}

var Topic = TopicTracer{}

func (TopicTracer) Expand(conn, topic string) {
	logging.Trace("topic.expand", map[string]interface{}{"conn": conn, "topic": topic})
}

func (TopicTracer) Collapse(conn, topic string) {
	logging.Trace("topic.collapse", map[string]interface{}{"conn": conn, "topic": topic})
}

func (TopicTracer) Select(conn, topic string) {
	logging.Trace("topic.select", map[string]interface{}{"conn": conn, "topic": topic})
}

func (TopicTracer) Clear(conn string) {
	logging.Trace("topic.clear", map[string]interface{}{"conn": conn})
}
