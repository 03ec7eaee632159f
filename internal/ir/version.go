package ir

// Version is the layersync release version.
const Version = "0.1.0"
