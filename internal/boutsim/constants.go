package boutsim

// HTTP status code constants.
const (
	StatusOK      = 200
	StatusCreated = 201
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Timeline constants. Judge entries and detected actions are spaced wider than the
// detection dedup window so that only camera overlap collapses.
const (
	roundLengthMS     = 300_000
	actionSpacingMS   = 250
	cameraJitterMS    = 20
	lowConfidenceRate = 0.1
)

// SystemActor finalizes rounds and closes bouts.
const SystemActor = "boutsim"
