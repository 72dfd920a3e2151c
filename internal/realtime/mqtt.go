package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// TopicFilter subscribes to the realtime topic of every plant.
const TopicFilter = "solar/+/realtime"

// Topic is the realtime topic of one plant.
func Topic(plantID string) string { return "solar/" + plantID + "/realtime" }

// PlantFromTopic extracts the plant id of a solar/<id>/realtime topic.
func PlantFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "solar" && parts[2] == "realtime" {
		return parts[1]
	}
	return ""
}

// Encode serializes a sample for publishing.
func Encode(s domain.RealtimeSample) ([]byte, error) {
	return json.Marshal(s)
}

// Decode parses a published sample. The plant id falls back to the topic.
func Decode(topic string, payload []byte) (domain.RealtimeSample, error) {
	var s domain.RealtimeSample
	if err := json.Unmarshal(payload, &s); err != nil {
		return s, fmt.Errorf("failed to decode sample: %w", err)
	}
	if s.PlantID == "" {
		s.PlantID = PlantFromTopic(topic)
	}
	switch {
	case s.PlantID == "":
		return s, domain.Validationf("sample without plant id on topic %q", topic)
	case s.Timestamp.IsZero():
		return s, domain.Validationf("sample without timestamp")
	case s.PowerKW < 0 || s.IntervalEnergyKWh < 0:
		return s, domain.Validationf("negative power or energy")
	case s.InvertersHealthyPct < 0 || s.InvertersHealthyPct > 100:
		return s, domain.Validationf("inverter health %.2f outside 0..100", s.InvertersHealthyPct)
	}
	return s, nil
}

// Sink receives decoded samples.
type Sink func(domain.RealtimeSample)

// Connect opens an MQTT connection to broker.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID).SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return client, nil
}

// Subscribe delivers every valid sample published under topic to sink.
// Malformed messages are logged and dropped.
func Subscribe(client mqtt.Client, topic string, sink Sink, log zerolog.Logger) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		s, err := Decode(msg.Topic(), msg.Payload())
		if err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("Dropping realtime message")
			return
		}
		sink(s)
	}
	if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Publish sends one sample to its plant topic.
func Publish(client mqtt.Client, s domain.RealtimeSample) error {
	payload, err := Encode(s)
	if err != nil {
		return err
	}
	token := client.Publish(Topic(s.PlantID), 0, false, payload)
	token.Wait()
	return token.Error()
}
