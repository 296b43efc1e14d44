package network

// DefaultConfig lists the public Ethereum and Arbitrum networks.
const DefaultConfig = `{
  "default": "arbitrum-sepolia",
  "networks": {
    "ethereum": {
      "chainId": 1,
      "rpcUrl": "https://ethereum-rpc.publicnode.com",
      "layer": 1,
      "contracts": {
        "inbox": "0x4Dbd4fc535Ac27206064B68FfCf827b0A60BAB3f"
      }
    },
    "arbitrum-one": {
      "chainId": 42161,
      "rpcUrl": "https://arb1.arbitrum.io/rpc",
      "layer": 2,
      "parent": "ethereum",
      "contracts": {
        "arbsys": "0x0000000000000000000000000000000000000064",
        "nodeinterface": "0x00000000000000000000000000000000000000C8"
      }
    },
    "sepolia": {
      "chainId": 11155111,
      "rpcUrl": "https://ethereum-sepolia-rpc.publicnode.com",
      "layer": 1,
      "contracts": {
        "inbox": "0xaAe29B0366299461418F5324a79Afc425BE5ae21"
      }
    },
    "arbitrum-sepolia": {
      "chainId": 421614,
      "rpcUrl": "https://sepolia-rollup.arbitrum.io/rpc",
      "layer": 2,
      "parent": "sepolia",
      "contracts": {
        "arbsys": "0x0000000000000000000000000000000000000064",
        "nodeinterface": "0x00000000000000000000000000000000000000C8"
      }
    }
  }
}`
