package cmd

// Raw socket driver, linux only
import _ "github.com/samsamfire/gor48/pkg/can/socketcanv2"
