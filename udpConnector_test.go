package rxp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type UDPConnectorTestSuite struct {
	rxpTestSuite
	alphaConnection *udpConnector
	betaConnection  *udpConnector
}

func (suite *UDPConnectorTestSuite) SetupTest() {
	alphaConnection, err := newUDPConnector(3031, "localhost", 3030)
	suite.Require().NoError(err)
	betaConnection, err := newUDPConnector(3030, "localhost", 3031)
	suite.Require().NoError(err)
	suite.alphaConnection = alphaConnection
	suite.betaConnection = betaConnection
}

func (suite *UDPConnectorTestSuite) TearDownTest() {
	suite.handleTestError(suite.alphaConnection.Close())
	suite.handleTestError(suite.betaConnection.Close())
}

func (suite *UDPConnectorTestSuite) write(c connector, payload string) {
	status, n, err := c.Write([]byte(payload))
	suite.handleTestError(err)
	suite.Equal(success, status)
	suite.Equal(len(payload), n)
}

func (suite *UDPConnectorTestSuite) read(c connector, expected string) {
	buffer := make([]byte, maxPacketSize)
	status, n, err := c.Read(buffer)
	suite.handleTestError(err)
	suite.Equal(success, status)
	suite.Equal(expected, string(buffer[:n]))
}

func (suite *UDPConnectorTestSuite) TestSimpleGreeting() {
	suite.alphaConnection.SetReadTimeout(time.Second)
	suite.betaConnection.SetReadTimeout(time.Second)
	suite.write(suite.alphaConnection, "Hello beta")
	suite.write(suite.betaConnection, "Hello alpha")
	suite.read(suite.betaConnection, "Hello beta")
	suite.read(suite.alphaConnection, "Hello alpha")
}

func (suite *UDPConnectorTestSuite) TestReadTimeout() {
	suite.alphaConnection.SetReadTimeout(10 * time.Millisecond)
	status, n, err := suite.alphaConnection.Read(make([]byte, maxPacketSize))
	suite.handleTestError(err)
	suite.Equal(timeout, status)
	suite.Equal(0, n)
}

func (suite *UDPConnectorTestSuite) TestLocalPort() {
	suite.Equal(3031, suite.alphaConnection.localPort())
}

func TestUDPConnector(t *testing.T) {
	suite.Run(t, new(UDPConnectorTestSuite))
}
