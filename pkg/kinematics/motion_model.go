// Package kinematics contains the physics used to move a train along its
// track: braking distances and velocity changes under bounded acceleration.
package kinematics

// MotionModel is the contract the train step relies on. Distances are in
// track units, velocities in units per second and times in seconds.
type MotionModel interface {
	// StoppingDistance returns the distance needed to stop from velocity v.
	StoppingDistance(v float64) float64

	// BrakingDistanceTo returns the distance needed to change velocity from
	// v to targetV.
	BrakingDistanceTo(v, targetV float64) float64

	// Accelerate returns the velocity after dt seconds of acceleration,
	// never exceeding ceiling.
	Accelerate(v, ceiling, dt float64) float64

	// Decelerate returns the velocity after dt seconds of braking, never
	// dropping below floor.
	Decelerate(v, floor, dt float64) float64
}
