package dialect

// Identifiers shared by the R48 family
const (
	IdRequest       uint32 = 0x06000783
	IdControl       uint32 = 0x0607FF83
	IdSystemControl uint32 = 0x06080783
	IdTelemetryA    uint32 = 0x060F8003
	IdTelemetryB    uint32 = 0x0707F803
)

// Dialect A discriminators (byte 3)
const (
	ParamAOutputVoltage      uint8 = 0x01
	ParamAOutputCurrent      uint8 = 0x02
	ParamAOutputCurrentLimit uint8 = 0x03
	ParamATemperature        uint8 = 0x04
	ParamAInputVoltage       uint8 = 0x05
)

// Dialect B & C discriminators (byte 1)
const (
	ParamInputPower         uint8 = 0x70
	ParamInputFrequency     uint8 = 0x71
	ParamInputCurrent       uint8 = 0x72
	ParamOutputPower        uint8 = 0x73
	ParamEfficiency         uint8 = 0x74
	ParamOutputVoltage      uint8 = 0x75
	ParamOutputCurrentLimit uint8 = 0x76
	ParamInputVoltage       uint8 = 0x78
	ParamOutputTemperature  uint8 = 0x7F
	ParamInputTemperature   uint8 = 0x80
	ParamOutputCurrent      uint8 = 0x81
)

var (
	ruleFloat      = Rule{Divisor: 1, Multiplier: 1}
	ruleFixed      = Rule{Divisor: 1024, Multiplier: 1}
	ruleLimit      = Rule{Divisor: 20, Multiplier: 1}
	ruleEfficiency = Rule{Divisor: 1024, Multiplier: 100}
)

var parametersA = map[uint8]Parameter{
	ParamAOutputVoltage:      {OutputVoltage, ruleFloat},
	ParamAOutputCurrent:      {OutputCurrent, ruleFloat},
	ParamAOutputCurrentLimit: {OutputCurrentLimit, ruleFloat},
	ParamATemperature:        {OutputTemperature, ruleFloat},
	ParamAInputVoltage:       {InputVoltage, ruleFloat},
}

// B and C share discriminator values but are kept as separate tables
var parametersB = map[uint8]Parameter{
	ParamInputPower:         {InputPower, ruleFixed},
	ParamInputFrequency:     {InputFrequency, ruleFixed},
	ParamInputCurrent:       {InputCurrent, ruleFixed},
	ParamOutputPower:        {OutputPower, ruleFixed},
	ParamEfficiency:         {Efficiency, ruleEfficiency},
	ParamOutputVoltage:      {OutputVoltage, ruleFixed},
	ParamOutputCurrentLimit: {OutputCurrentLimit, ruleLimit},
	ParamInputVoltage:       {InputVoltage, ruleFixed},
	ParamOutputTemperature:  {OutputTemperature, ruleFixed},
	ParamInputTemperature:   {InputTemperature, ruleFixed},
	ParamOutputCurrent:      {OutputCurrent, ruleFixed},
}

var parametersC = map[uint8]Parameter{
	ParamInputPower:         {InputPower, ruleFixed},
	ParamInputFrequency:     {InputFrequency, ruleFixed},
	ParamInputCurrent:       {InputCurrent, ruleFixed},
	ParamOutputPower:        {OutputPower, ruleFixed},
	ParamEfficiency:         {Efficiency, ruleEfficiency},
	ParamOutputVoltage:      {OutputVoltage, ruleFixed},
	ParamOutputCurrentLimit: {OutputCurrentLimit, ruleLimit},
	ParamInputVoltage:       {InputVoltage, ruleFixed},
	ParamOutputTemperature:  {OutputTemperature, ruleFixed},
	ParamInputTemperature:   {InputTemperature, ruleFixed},
	ParamOutputCurrent:      {OutputCurrent, ruleFixed},
}

func singleRequestA(name string, param uint8) PollRequest {
	return PollRequest{Name: name, Payload: [8]byte{0x01, 0xF0, 0x00, param}, Channels: []Channel{parametersA[param].Channel}}
}

func singleRequestC(name string, param uint8) PollRequest {
	return PollRequest{Name: name, Payload: [8]byte{0x01, param}, Channels: []Channel{parametersC[param].Channel}}
}

// Group queries, each one makes the rectifier answer with several data frames
var (
	GroupOutput = PollRequest{
		Name:     "output",
		Payload:  [8]byte{0x00, 0xF0, 0x00, 0x00},
		Channels: []Channel{OutputVoltage, OutputCurrent, OutputCurrentLimit},
	}
	GroupInput = PollRequest{
		Name:     "input",
		Payload:  [8]byte{0x00, 0xF0, 0x00, 0x01},
		Channels: []Channel{InputCurrent, InputFrequency, InputVoltage},
	}
	GroupPower = PollRequest{
		Name:     "power",
		Payload:  [8]byte{0x00, 0xF0, 0x00, 0x02},
		Channels: []Channel{InputPower, OutputPower, Efficiency},
	}
	GroupTemperature = PollRequest{
		Name:     "temperature",
		Payload:  [8]byte{0x00, 0xF0, 0x00, 0x03},
		Channels: []Channel{InputTemperature, OutputTemperature},
	}
)

var specA = Spec{
	Dialect:             DialectA,
	RequestID:           IdRequest,
	TelemetryID:         IdTelemetryA,
	TelemetryMask:       0x1FFFFFFF,
	ControlID:           IdControl,
	SystemControlID:     IdSystemControl,
	DiscriminatorOffset: 3,
	Encoding:            EncodingFloat,
	Parameters:          parametersA,
	PollCycle: []PollRequest{
		singleRequestA("output voltage", ParamAOutputVoltage),
		singleRequestA("output current", ParamAOutputCurrent),
		singleRequestA("output current limit", ParamAOutputCurrentLimit),
		singleRequestA("temperature", ParamATemperature),
		singleRequestA("input voltage", ParamAInputVoltage),
	},
	RequestRTR:        false,
	CommandPrefix:     [4]byte{0x03, 0xF0, 0x00, 0x00},
	CommandCodeOffset: 3,
	Codes: CommandCodes{
		VoltageOnline:  0x21,
		VoltageOffline: 0x24,
		CurrentOnline:  0x22,
		CurrentOffline: 0x19,
		InputCurrent:   0x1A,
	},
	CurrentMode:      CurrentPercentage,
	HeartbeatChannel: InputVoltage,
	StaleFactor:      10,
}

var specB = Spec{
	Dialect:             DialectB,
	RequestID:           IdRequest,
	TelemetryID:         IdTelemetryB,
	TelemetryMask:       0x1FFFFFFF,
	ControlID:           IdControl,
	DiscriminatorOffset: 1,
	Encoding:            EncodingFixed,
	Parameters:          parametersB,
	PollCycle:           []PollRequest{GroupOutput, GroupPower, GroupTemperature, GroupInput},
	RequestRTR:          true,
	CommandPrefix:       [4]byte{0x01, 0x00, 0x00, 0x00},
	CommandCodeOffset:   1,
	Codes: CommandCodes{
		VoltageOnline:  0x00,
		VoltageOffline: 0x01,
		CurrentOnline:  0x03,
		CurrentOffline: 0x04,
	},
	CurrentMode:      CurrentAmps,
	HeartbeatChannel: InputVoltage,
	StaleFactor:      5,
}

var specC = Spec{
	Dialect:             DialectC,
	RequestID:           IdRequest,
	TelemetryID:         IdTelemetryB,
	TelemetryMask:       0x1FFFFFFF,
	ControlID:           IdControl,
	DiscriminatorOffset: 1,
	Encoding:            EncodingFixed,
	Parameters:          parametersC,
	PollCycle: []PollRequest{
		singleRequestC("output voltage", ParamOutputVoltage),
		singleRequestC("output current", ParamOutputCurrent),
		singleRequestC("output current limit", ParamOutputCurrentLimit),
		singleRequestC("output temperature", ParamOutputTemperature),
		singleRequestC("input voltage", ParamInputVoltage),
	},
	RequestRTR:        false,
	CommandPrefix:     [4]byte{0x03, 0xF0, 0x00, 0x00},
	CommandCodeOffset: 3,
	Codes: CommandCodes{
		VoltageOnline:  0x00,
		VoltageOffline: 0x01,
		CurrentOnline:  0x03,
		CurrentOffline: 0x04,
	},
	CurrentMode:      CurrentAmps,
	HeartbeatChannel: InputVoltage,
	StaleFactor:      5,
}
