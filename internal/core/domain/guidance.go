package domain

// Guidance is the structured crisis advice shown to requesters and responders.
// The external generator returns it as JSON text; the core stores that text
// opaquely.
type Guidance struct {
	ImmediateSteps   []string `json:"immediate_steps"`
	DoNot            []string `json:"do_not"`
	EmergencySummary string   `json:"emergency_summary"`
	CallNumbers      []string `json:"call_numbers"`
}

var fallbackGuidance = map[CrisisType]Guidance{
	CrisisMedical: {
		ImmediateSteps: []string{
			"Call 108 immediately",
			"Keep the person calm and still",
			"Check if they are breathing",
			"Do not give food or water",
		},
		DoNot: []string{
			"Do not move the person unless in danger",
			"Do not leave them alone",
		},
		EmergencySummary: "Medical emergency reported. Person needs immediate medical attention. Please send ambulance to location.",
		CallNumbers:      []string{"108", "112"},
	},
	CrisisFire: {
		ImmediateSteps: []string{
			"Call 101 immediately",
			"Evacuate the area",
			"Stay low if there is smoke",
			"Do not use elevators",
		},
		DoNot: []string{
			"Do not go back inside",
			"Do not use water on electrical fires",
		},
		EmergencySummary: "Fire emergency reported. Immediate fire service response required at location.",
		CallNumbers:      []string{"101", "112"},
	},
	CrisisBreakdown: {
		ImmediateSteps: []string{
			"Move vehicle to safe location",
			"Turn on hazard lights",
			"Stay away from traffic",
			"Call roadside assistance",
		},
		DoNot: []string{
			"Do not stand behind the vehicle",
			"Do not leave children in the car",
		},
		EmergencySummary: "Vehicle breakdown reported. Roadside assistance needed at location.",
		CallNumbers:      []string{"112"},
	},
	CrisisGasLeak: {
		ImmediateSteps: []string{
			"Evacuate immediately",
			"Do not turn on any switches",
			"Call 101 fire service",
			"Open windows if safe to do so",
		},
		DoNot: []string{
			"Do not use any electrical switches",
			"Do not smoke or use open flames",
			"Do not use elevator",
		},
		EmergencySummary: "Gas leak reported. Immediate fire service response required. Area being evacuated.",
		CallNumbers:      []string{"101", "112"},
	},
	CrisisOther: {
		ImmediateSteps: []string{
			"Call 112 for general emergency",
			"Stay calm",
			"Stay at your location",
			"Help is on the way",
		},
		DoNot: []string{
			"Do not panic",
			"Do not leave the area",
		},
		EmergencySummary: "Emergency reported. Immediate assistance required at location.",
		CallNumbers:      []string{"112"},
	},
}

// FallbackGuidance returns static advice for ct, used when the generator is
// unreachable.
func FallbackGuidance(ct CrisisType) Guidance {
	if g, ok := fallbackGuidance[ct]; ok {
		return g
	}
	return fallbackGuidance[CrisisOther]
}
