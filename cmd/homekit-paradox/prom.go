package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var areaStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_paradox",
	Subsystem:   "alarm",
	Name:        "state",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"area"})

var inAlarmGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_paradox",
	Subsystem:   "alarm",
	Name:        "in_alarm",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"area"})

var availableGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace:   "homekit_paradox",
	Subsystem:   "module",
	Name:        "available",
	Help:        "",
	ConstLabels: map[string]string{},
})

var pollErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   "homekit_paradox",
	Subsystem:   "module",
	Name:        "poll_errors_total",
	Help:        "",
	ConstLabels: map[string]string{},
})

var commandCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   "homekit_paradox",
	Subsystem:   "module",
	Name:        "commands_total",
	Help:        "",
	ConstLabels: map[string]string{},
})

var commandErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   "homekit_paradox",
	Subsystem:   "module",
	Name:        "command_errors_total",
	Help:        "",
	ConstLabels: map[string]string{},
})
