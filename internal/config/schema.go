package config

// schemaJSON is the embedded JSON Schema validating a StaticConfig document
// before it is decoded, encoding spec.md §6's required/optional member list
// and defaults.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["channels"],
  "properties": {
    "channels": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["ecu", "port", "channelThreshold"],
        "properties": {
          "ecu": {"type": "string"},
          "address": {"type": "string"},
          "port": {"type": "integer", "minimum": 0, "maximum": 65535},
          "dstAddress": {"type": "string"},
          "dstPort": {"type": "integer", "minimum": 0, "maximum": 65535},
          "channelThreshold": {"type": "string"},
          "multicastInterface": {"type": "string"}
        }
      }
    },
    "channelAssignments": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {"type": "string"}
      }
    },
    "filteringEnabled": {"type": "boolean"},
    "defaultChannel": {"type": "string"},
    "coredumpChannel": {"type": "string"},
    "defaultThreshold": {"type": "string"},
    "defaultThresold": {"type": "string"},
    "messageThresholds": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "quotas": {
      "type": "object",
      "properties": {
        "quotaEnforcementEnabled": {"type": "boolean"},
        "throughput": {
          "type": "object",
          "properties": {
            "overallMbps": {"type": "number"},
            "applicationsKbps": {
              "type": "object",
              "additionalProperties": {"type": "number"}
            }
          }
        }
      }
    }
  }
}`
