package events

import "github.com/mqttscope/mqttscope/internal/logging"

type ConnectionTracer struct{}

var Connection = ConnectionTracer{}

func (ConnectionTracer) Start(id, host string, port uint16) {
	logging.Trace("connection.start", map[string]interface{}{"id": id, "host": host, "port": port})
}

func (ConnectionTracer) Stop(id string) {
	logging.Trace("connection.stop", map[string]interface{}{"id": id})
}

func (ConnectionTracer) Connected(id string) {
	logging.Trace("connection.connected", map[string]interface{}{"id": id})
}

func (ConnectionTracer) DialFailed(host string, err error) {
	logging.Trace("connection.dial.failed", map[string]interface{}{"host": host, "error": err.Error()})
}

func (ConnectionTracer) Error(id, detail string) {
	logging.Trace("connection.error", map[string]interface{}{"id": id, "detail": detail})
}

func (ConnectionTracer) WorkerCrash(id string, reason interface{}) {
	logging.Trace("connection.worker.crash", map[string]interface{}{"id": id, "reason": reason})
}

func (ConnectionTracer) Publish(id, topic string, size int) {
	logging.Trace("connection.publish", map[string]interface{}{"id": id, "topic": topic, "bytes": size})
}

func (ConnectionTracer) Subscribe(id, topic string, qos byte) {
	logging.Trace("connection.subscribe", map[string]interface{}{"id": id, "topic": topic, "qos": qos})
}
