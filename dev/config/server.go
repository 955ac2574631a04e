package config

// SERVER_YML is written to dev/config/server.yml the first time the CLI runs with --dev.
// auth.privateKeyPem is left empty so dev servers sign with a generated key.
const SERVER_YML = `
database:
  driver: sqlite
  passPhrase: passphrase
  # dsn: "host=localhost user=healthdesk password=healthdesk dbname=healthdesk port=5432 sslmode=disable"

auth:
  privateKeyPem:
  issuer: "healthdesk-dev"
  accessTokenTTL: 1h
  refreshTokenTTL: 24h

listener:
  port: 3000

logging:
  level: debug
  file:
    enabled: false
    path: "dev/logs/healthdesk.log"
    maxSizeMB: 10
    maxBackups: 3
    maxAgeDays: 7
    compress: false

google:
  storage:
    bucket: "healthdesk"
    prefix: "healthdesk-dev"
  applicationCredentials:
`
