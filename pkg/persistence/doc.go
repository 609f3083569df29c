// Package persistence stores the node record that survives resets: the
// provisioning outcome and the keys derived for this device.
//
// The record plays the role of the settings flash on the switch. Clearing
// it is what "erase all settings" means, so a factory reset always boots
// an unprovisioned node.
package persistence
