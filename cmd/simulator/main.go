// Command simulator stands in for the ESP32 when no hardware is on the
// bench. It publishes fake telemetry on a fixed interval, announces itself
// as online with a retained status message and an offline last-will, and
// logs any irrigation command it receives.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Abdellah421/irrigition-app/internal/config"
	"github.com/Abdellah421/irrigition-app/internal/logging"
)

type telemetry struct {
	Temperature float64 `json:"temperature"`
	Humidite    float64 `json:"humidite"`
	Sol         string  `json:"sol"`
}

func main() {
	interval := flag.Duration("interval", 10*time.Second, "delay between telemetry publishes")
	clientID := flag.String("client-id", "esp32-simulator", "MQTT client identifier")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.AppEnv, cfg.LogLevel)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(*clientID).
		SetKeepAlive(cfg.KeepAlive).
		SetWill(cfg.StatusTopic, "offline", 0, true)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}
	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("connected to broker", "url", cfg.BrokerURL)
		c.Publish(cfg.StatusTopic, 0, true, "online")
		c.Subscribe(cfg.CommandTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			command := string(msg.Payload())
			switch command {
			case "START":
				logger.Info("pump started", "command", command)
			case "STOP":
				logger.Info("pump stopped", "command", command)
			default:
				logger.Warn("unknown command", "command", command)
			}
		})
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logger.Error("broker connection failed", "error", token.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("simulator running",
		"data_topic", cfg.DataTopic,
		"command_topic", cfg.CommandTopic,
		"interval", *interval)

	// Soil moisture ping-pongs between the dry and wet thresholds so the
	// dashboard's alerts fire without waiting on real weather.
	moisture := 55.0
	direction := -1.0

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Publish the retained offline status ourselves on a clean
			// shutdown; the will only covers ungraceful disconnects.
			client.Publish(cfg.StatusTopic, 0, true, "offline").Wait()
			client.Disconnect(250)
			logger.Info("simulator stopped")
			return
		case <-ticker.C:
			reading := telemetry{
				Temperature: round2(22.5 + float64(time.Now().Unix()%10)*0.1),
				Humidite:    round2(45.0 + float64(time.Now().Unix()%20)*0.2),
				Sol:         fmt.Sprintf("%.2f%%", moisture),
			}
			payload, err := json.Marshal(reading)
			if err != nil {
				logger.Error("marshal telemetry", "error", err)
				continue
			}
			client.Publish(cfg.DataTopic, 0, false, payload)
			logger.Info("telemetry published",
				"temperature", reading.Temperature,
				"humidite", reading.Humidite,
				"sol", reading.Sol)

			moisture += direction * 2.5
			if moisture <= 25 {
				direction = 1
			} else if moisture >= 65 {
				direction = -1
			}
		}
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
